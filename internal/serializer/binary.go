package serializer

import (
	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/serde/bincodec"
)

// BinarySerializer 使用 bincodec 编解码，记录成员只写 id。
type BinarySerializer struct{}

var _ Serializer = BinarySerializer{}

func (BinarySerializer) Kind() Kind {
	return KindBinary
}

func (BinarySerializer) Marshal(v serde.Serialize) ([]byte, error) {
	return bincodec.Marshal(v)
}

func (BinarySerializer) Unmarshal(data []byte, v serde.Visitor) error {
	return bincodec.UnmarshalVisitor(data, v)
}
