package serializer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/serde-go/pkg/serde/serdetest"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

func TestByName(t *testing.T) {
	cases := map[string]Kind{
		"binary":        KindBinary,
		"text":          KindText,
		"text-pretty":   KindTextPretty,
		"3":             KindTextPretty,
		"1:binary":      KindBinary,
		"2:unknownname": KindText,
	}
	for name, kind := range cases {
		s, err := ByName(name)
		require.NoError(t, err, name)
		assert.Equal(t, kind, s.Kind(), name)
	}

	_, err := ByName("yaml")
	assert.ErrorIs(t, err, merr.ErrFrameFormat)
	_, err = New(Kind(9))
	assert.ErrorIs(t, err, merr.ErrFrameFormat)

	assert.Equal(t, "text-pretty", KindTextPretty.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestRoundTrip(t *testing.T) {
	person := serdetest.SamplePerson()
	for _, kind := range []Kind{KindBinary, KindText, KindTextPretty} {
		s, err := New(kind)
		require.NoError(t, err)

		data, err := s.Marshal(person)
		require.NoError(t, err, kind.String())
		got, err := Unmarshal(s, data, serdetest.PersonBinding)
		require.NoError(t, err, kind.String())
		assert.Equal(t, person, got, kind.String())
	}
}

func TestFormatsDiffer(t *testing.T) {
	d := serdetest.Date{Day: 1, Month: serdetest.May, Year: 2000}

	text, err := TextSerializer{}.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `{"1:day":1,"2:month":"5:May","3:year":2000}`, string(text))

	bin, err := BinarySerializer{}.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x83, 0x01, 0x01, 0x02, 0x05, 0x03, 0xcd, 0x07, 0xd0}, bin)

	// 文本解码器拒绝二进制输入。
	_, err = Unmarshal(TextSerializer{}, bin, serdetest.DateBinding)
	assert.ErrorIs(t, err, merr.ErrParsing)
}
