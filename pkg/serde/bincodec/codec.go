package bincodec

import (
	"io"

	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

func Marshal(v serde.Serialize) ([]byte, error) {
	s := NewSerializer(nil)
	if err := v.Serialize(s); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// Encode 将 v 写入 w。
func Encode(w io.Writer, v serde.Serialize) error {
	s := NewSerializer(w)
	if err := v.Serialize(s); err != nil {
		return err
	}
	return s.Flush()
}

// Unmarshal 从 data 中读取一个 T，data 必须恰好包含一个值。
func Unmarshal[T any](data []byte, b serde.Binding[T]) (T, error) {
	var out T
	if err := UnmarshalInto(data, &out, b); err != nil {
		return out, err
	}
	return out, nil
}

func UnmarshalInto[T any](data []byte, out *T, b serde.Binding[T]) error {
	d := NewBytesDeserializer(data)
	if err := serde.DeserializeInto(d, out, b); err != nil {
		return err
	}
	return checkConsumed(d, len(data))
}

// UnmarshalVisitor 将 data 推送给任意 Visitor。
func UnmarshalVisitor(data []byte, v serde.Visitor) error {
	d := NewBytesDeserializer(data)
	if err := d.Deserialize(v); err != nil {
		return err
	}
	return checkConsumed(d, len(data))
}

// Decode 从 r 中读取一个 T。
func Decode[T any](r io.Reader, b serde.Binding[T]) (T, error) {
	return serde.Deserialize(NewDeserializer(r), b)
}

func checkConsumed(d *Deserializer, size int) error {
	if d.Offset() != int64(size) {
		return merr.WrapErrParsing(d.Offset(), "trailing bytes after value")
	}
	return nil
}
