package bincodec

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/serde/serdetest"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

type BinCodecSuite struct {
	suite.Suite
}

func (s *BinCodecSuite) marshal(v serde.Serialize) []byte {
	out, err := Marshal(v)
	s.Require().NoError(err)
	return out
}

func (s *BinCodecSuite) TestUnsignedWidth() {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0xcc, 0x80}},
		{200, []byte{0xcc, 0xc8}},
		{255, []byte{0xcc, 0xff}},
		{256, []byte{0xcd, 0x01, 0x00}},
		{70000, []byte{0xce, 0x00, 0x01, 0x11, 0x70}},
		{1 << 32, []byte{0xcf, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x00}},
	}
	for _, c := range cases {
		s.Equal(c.want, s.marshal(serde.Uint(c.v)), c.v)

		back, err := Unmarshal(c.want, serde.UintBinding[uint64])
		s.NoError(err)
		s.Equal(c.v, back)
	}
}

func (s *BinCodecSuite) TestSignedWidth() {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{-1, []byte{0xff}},
		{-32, []byte{0xe0}},
		{-33, []byte{0xd0, 0xdf}},
		{-128, []byte{0xd0, 0x80}},
		{128, []byte{0xd1, 0x00, 0x80}},
		{-129, []byte{0xd1, 0xff, 0x7f}},
		{40000, []byte{0xd2, 0x00, 0x00, 0x9c, 0x40}},
		{math.MinInt64, []byte{0xd3, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}},
	}
	for _, c := range cases {
		s.Equal(c.want, s.marshal(serde.Int(c.v)), c.v)

		back, err := Unmarshal(c.want, serde.IntBinding[int64])
		s.NoError(err)
		s.Equal(c.v, back)
	}
}

func (s *BinCodecSuite) TestScalars() {
	s.Equal([]byte{0xc0}, s.marshal(serde.Null()))
	s.Equal([]byte{0xc2}, s.marshal(serde.Bool(false)))
	s.Equal([]byte{0xc3}, s.marshal(serde.Bool(true)))
	s.Equal([]byte{0xca, 0x3f, 0xc0, 0x00, 0x00}, s.marshal(serde.Float(1.5)))
	s.Equal([]byte{0xcb, 0x3f, 0xb9, 0x99, 0x99, 0x99, 0x99, 0x99, 0x9a}, s.marshal(serde.Float(0.1)))
	s.Equal([]byte{0x0a}, s.marshal(serdetest.October))

	f, err := Unmarshal([]byte{0xcb, 0x3f, 0xb9, 0x99, 0x99, 0x99, 0x99, 0x99, 0x9a}, serde.FloatBinding[float64])
	s.NoError(err)
	s.Equal(0.1, f)

	b, err := Unmarshal([]byte{0xc3}, serde.BoolBinding)
	s.NoError(err)
	s.True(b)

	m, err := Unmarshal([]byte{0x0a}, serdetest.MonthBinding)
	s.NoError(err)
	s.Equal(serdetest.October, m)

	_, err = Unmarshal([]byte{0x0d}, serdetest.MonthBinding)
	s.ErrorIs(err, merr.ErrUnknownEnumVariant)
}

func (s *BinCodecSuite) TestStringWidth() {
	cases := []struct {
		n      int
		prefix []byte
	}{
		{0, []byte{0xa0}},
		{31, []byte{0xbf}},
		{32, []byte{0xd9, 0x20}},
		{255, []byte{0xd9, 0xff}},
		{256, []byte{0xda, 0x01, 0x00}},
		{70000, []byte{0xdb, 0x00, 0x01, 0x11, 0x70}},
	}
	for _, c := range cases {
		str := strings.Repeat("x", c.n)
		out := s.marshal(serde.Str(str))
		s.Equal(c.prefix, out[:len(c.prefix)], c.n)
		s.Len(out, len(c.prefix)+c.n)

		back, err := Unmarshal(out, serde.StringBinding)
		s.NoError(err)
		s.Equal(str, back)
	}
}

func (s *BinCodecSuite) TestAggregateWidth() {
	items := make([]uint8, 16)
	out := s.marshal(serde.Seq(items[:15], serde.Uint[uint8]))
	s.Equal(byte(0x9f), out[0])

	out = s.marshal(serde.Seq(items, serde.Uint[uint8]))
	s.Equal([]byte{0xdc, 0x00, 0x10}, out[:3])
	back, err := Unmarshal(out, serde.SliceBinding(serde.UintBinding[uint8]))
	s.NoError(err)
	s.Equal(items, back)

	d := serdetest.Date{Day: 19, Month: serdetest.October, Year: 1993}
	out = s.marshal(d)
	s.Equal([]byte{0x83, 0x01, 0x13, 0x02, 0x0a, 0x03, 0xcd, 0x07, 0xc9}, out)

	fields := make([]serde.Field, 16)
	values := make([]serde.Serialize, 16)
	for i := range fields {
		fields[i] = serde.Field{ID: uint32(i + 1)}
		values[i] = serde.Null()
	}
	out = s.marshal(serde.SerializeFunc(func(ser serde.Serializer) error {
		return serde.SerializeRecord(ser, serde.MustFields("Wide", fields...), values...)
	}))
	s.Equal([]byte{0xde, 0x00, 0x10, 0x01, 0xc0}, out[:5])
}

func (s *BinCodecSuite) TestRoundTrip() {
	person := serdetest.SamplePerson()
	out := s.marshal(person)
	got, err := Unmarshal(out, serdetest.PersonBinding)
	s.NoError(err)
	s.Equal(person, got)

	brand := "Peugeot"
	person.CarBrand = &brand
	person.Height = nil
	person.Pets = []string{}
	person.Occupation = serdetest.Occupation{Kind: serdetest.Unemployed}
	out = s.marshal(person)
	got, err = Unmarshal(out, serdetest.PersonBinding)
	s.NoError(err)
	s.Equal(person, got)

	// 非 ByteReader 的输入会被包装后读取。
	got, err = Decode(iotest.OneByteReader(bytes.NewReader(out)), serdetest.PersonBinding)
	s.NoError(err)
	s.Equal(person, got)
}

func (s *BinCodecSuite) TestMsgpackReadsOutput() {
	out := s.marshal(serdetest.SamplePerson())
	dec := msgpack.NewDecoder(bytes.NewReader(out))

	n, err := dec.DecodeMapLen()
	s.Require().NoError(err)
	s.Equal(8, n)

	fields := make(map[uint32]any, n)
	for i := 0; i < n; i++ {
		id, err := dec.DecodeUint32()
		s.Require().NoError(err)
		switch id {
		case 3, 7:
			v, err := dec.DecodeUntypedMap()
			s.Require().NoError(err)
			fields[id] = v
		default:
			v, err := dec.DecodeInterface()
			s.Require().NoError(err)
			fields[id] = v
		}
	}
	s.Equal("Steven", fields[1])
	s.EqualValues(27, fields[2])
	s.Equal([]any{"Bouboul", "Monsieur Puppy"}, fields[4])
	s.Equal(float32(1.735), fields[5])
	s.Nil(fields[88])
	s.Equal(true, fields[6])

	date, ok := fields[3].(map[any]any)
	s.Require().True(ok)
	s.Len(date, 3)
	occupation, ok := fields[7].(map[any]any)
	s.Require().True(ok)
	s.Len(occupation, 1)
}

func (s *BinCodecSuite) TestMatchesMsgpackEncoder() {
	var want bytes.Buffer
	enc := msgpack.NewEncoder(&want)
	s.Require().NoError(enc.EncodeArrayLen(6))
	s.Require().NoError(enc.EncodeInt16(200))
	s.Require().NoError(enc.EncodeInt(-5))
	s.Require().NoError(enc.EncodeUint(300))
	s.Require().NoError(enc.EncodeString("hi"))
	s.Require().NoError(enc.EncodeFloat32(2.5))
	s.Require().NoError(enc.EncodeNil())

	items := []serde.Serialize{serde.Int(200), serde.Int(-5), serde.Uint(uint64(300)), serde.Str("hi"), serde.Float(2.5), serde.Null()}
	got := s.marshal(serde.Seq(items, func(v serde.Serialize) serde.Serialize { return v }))
	s.Equal(want.Bytes(), got)

	// 流中后续字节不会被预读。
	d := NewBytesDeserializer(append(got, 0x01))
	s.Require().NoError(d.Deserialize(acceptAll{}))
	s.Equal(int64(len(got)), d.Offset())
}

func (s *BinCodecSuite) TestReadsMsgpackInput() {
	in, err := msgpack.Marshal(map[string]any{
		"name": "Ada",
		"age":  -3,
		"birth_date": map[string]any{
			"day":   1,
			"month": "May",
			"year":  1990,
		},
		"pets":       []string{"cat"},
		"height":     float32(1.5),
		"carBrand":   nil,
		"IsCool":     false,
		"occupation": map[string]any{"hasJob": "Engineer"},
	})
	s.Require().NoError(err)

	p, err := Unmarshal(in, serdetest.PersonBinding)
	s.Require().NoError(err)
	s.Equal("Ada", p.Name)
	s.Equal(int16(-3), p.Age)
	s.Equal(serdetest.Date{Day: 1, Month: serdetest.May, Year: 1990}, p.BirthDate)
	s.Equal([]string{"cat"}, p.Pets)
	s.Require().NotNil(p.Height)
	s.Equal(float32(1.5), *p.Height)
	s.Nil(p.CarBrand)
	s.False(p.IsCool)
	s.Equal(serdetest.Occupation{Kind: serdetest.Employed, Job: "Engineer"}, p.Occupation)

	big, err := msgpack.Marshal(uint64(3000000000))
	s.Require().NoError(err)
	_, err = Unmarshal(big, serde.IntBinding[int32])
	s.ErrorIs(err, merr.ErrIncompatibleNumericType)
	u, err := Unmarshal(big, serde.UintBinding[uint32])
	s.NoError(err)
	s.Equal(uint32(3000000000), u)
}

func (s *BinCodecSuite) TestMalformed() {
	cases := []struct {
		in   []byte
		want error
	}{
		{nil, merr.ErrUnexpectedEOF},
		{[]byte{0xcd, 0x01}, merr.ErrUnexpectedEOF},
		{[]byte{0xd9, 0x05, 'a', 'b'}, merr.ErrUnexpectedEOF},
		{[]byte{0x92, 0x01}, merr.ErrUnexpectedEOF},
		{[]byte{0x81, 0x01}, merr.ErrUnexpectedEOF},
		{[]byte{0xdb, 0x00, 0x10, 0x00, 0x00, 'a'}, merr.ErrUnexpectedEOF},
		{[]byte{0xc1}, merr.ErrParsing},
		{[]byte{0xc4, 0x00}, merr.ErrParsing},
		{[]byte{0x01, 0x02}, merr.ErrParsing},
		{[]byte{0x81, 0xc3, 0x01}, merr.ErrUnimplementedVisit},
		{[]byte{0x81, 0xff, 0x01}, merr.ErrIncompatibleNumericType},
	}
	for _, c := range cases {
		err := UnmarshalVisitor(c.in, acceptAll{})
		s.ErrorIs(err, c.want, c.in)
	}

	err := UnmarshalVisitor([]byte{0x91, 0xc1}, acceptAll{})
	s.Contains(err.Error(), "offset=1")
	s.Contains(err.Error(), "0xc1")
}

func (s *BinCodecSuite) TestRecordErrors() {
	_, err := Unmarshal([]byte{0x82, 0x01, 0x13, 0x02, 0x0a}, serdetest.DateBinding)
	s.ErrorIs(err, merr.ErrMissingField)
	s.Contains(err.Error(), "field=year")

	_, err = Unmarshal([]byte{0x81, 0x09, 0xc0}, serdetest.DateBinding)
	s.ErrorIs(err, merr.ErrUnknownField)

	_, err = Unmarshal([]byte{0x81, 0x05, 0xc0}, serdetest.OccupationBinding)
	s.ErrorIs(err, merr.ErrUnknownUnionVariant)
}

func (s *BinCodecSuite) TestSerializeErrors() {
	err := Encode(&bytes.Buffer{}, serde.SerializeFunc(func(ser serde.Serializer) error {
		if err := ser.StartSeq(2); err != nil {
			return err
		}
		if err := ser.SerializeSeqElmt(serde.Null()); err != nil {
			return err
		}
		return ser.EndSeq()
	}))
	s.ErrorIs(err, merr.ErrSerialize)

	err = Encode(&bytes.Buffer{}, serde.SerializeFunc(func(ser serde.Serializer) error {
		if err := ser.StartSeq(0); err != nil {
			return err
		}
		return ser.SerializeSeqElmt(serde.Null())
	}))
	s.ErrorIs(err, merr.ErrSerialize)

	s.ErrorIs(NewSerializer(nil).EndStruct(), merr.ErrSerialize)

	errBroken := errors.New("broken")
	err = Encode(failWriter{errBroken}, serdetest.SamplePerson())
	s.ErrorIs(err, merr.ErrIoFailed)

	_, err = Decode(iotest.ErrReader(errBroken), serde.StringBinding)
	s.ErrorIs(err, merr.ErrIoFailed)
	s.ErrorIs(err, errBroken)
}

type failWriter struct {
	err error
}

func (w failWriter) Write([]byte) (int, error) {
	return 0, w.err
}

type acceptAll struct{}

func (acceptAll) VisitNull() error                              { return nil }
func (acceptAll) VisitBool(bool) error                          { return nil }
func (acceptAll) VisitSigned(int64) error                       { return nil }
func (acceptAll) VisitUnsigned(uint64) error                    { return nil }
func (acceptAll) VisitFloat(float64) error                      { return nil }
func (acceptAll) VisitStr(string) error                         { return nil }
func (acceptAll) VisitSeq(int) (serde.SeqBuilder, error)        { return acceptAll{}, nil }
func (acceptAll) VisitStruct() (serde.StructBuilder, error)     { return acceptAll{}, nil }
func (acceptAll) Element() (serde.Visitor, error)               { return acceptAll{}, nil }
func (acceptAll) Member(serde.MemberKey) (serde.Visitor, error) { return acceptAll{}, nil }
func (acceptAll) Finish() error                                 { return nil }

func TestBinCodec(t *testing.T) {
	suite.Run(t, new(BinCodecSuite))
}
