package serializer

import (
	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/serde/textcodec"
)

// TextSerializer 使用 textcodec 编解码，Pretty 为 true 时输出带缩进的文本。
type TextSerializer struct {
	Pretty bool
}

var _ Serializer = TextSerializer{}

func (t TextSerializer) Kind() Kind {
	if t.Pretty {
		return KindTextPretty
	}
	return KindText
}

func (t TextSerializer) Marshal(v serde.Serialize) ([]byte, error) {
	if t.Pretty {
		return textcodec.MarshalPretty(v)
	}
	return textcodec.Marshal(v)
}

func (TextSerializer) Unmarshal(data []byte, v serde.Visitor) error {
	return textcodec.UnmarshalVisitor(data, v)
}
