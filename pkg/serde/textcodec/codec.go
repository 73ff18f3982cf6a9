package textcodec

import (
	"io"

	"github.com/lk2023060901/serde-go/pkg/serde"
)

// Marshal 以紧凑形式序列化 v。
func Marshal(v serde.Serialize) ([]byte, error) {
	s := NewSerializer(nil)
	if err := v.Serialize(s); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// MarshalPretty 以多行缩进形式序列化 v。
func MarshalPretty(v serde.Serialize) ([]byte, error) {
	s := NewSerializer(nil, WithPretty())
	if err := v.Serialize(s); err != nil {
		return nil, err
	}
	return s.Bytes(), nil
}

// Encode 将 v 写入 w。
func Encode(w io.Writer, v serde.Serialize, opts ...Option) error {
	s := NewSerializer(w, opts...)
	if err := v.Serialize(s); err != nil {
		return err
	}
	return s.Flush()
}

// Unmarshal 从 data 中读取一个 T，值之后只允许出现空白。
func Unmarshal[T any](data []byte, b serde.Binding[T]) (T, error) {
	return UnmarshalString(string(data), b)
}

func UnmarshalString[T any](data string, b serde.Binding[T]) (T, error) {
	var out T
	if err := UnmarshalInto(data, &out, b); err != nil {
		return out, err
	}
	return out, nil
}

// UnmarshalInto 将 data 解析到 out 指向的存储。
func UnmarshalInto[T any](data string, out *T, b serde.Binding[T]) error {
	d := NewDeserializer(data)
	if err := serde.DeserializeInto(d, out, b); err != nil {
		return err
	}
	return d.End()
}

// UnmarshalVisitor 将 data 推送给任意 Visitor，用于不经过 Binding 的调用方。
func UnmarshalVisitor(data []byte, v serde.Visitor) error {
	d := NewDeserializer(string(data))
	if err := d.Deserialize(v); err != nil {
		return err
	}
	return d.End()
}
