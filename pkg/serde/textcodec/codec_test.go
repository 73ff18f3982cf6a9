package textcodec

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/serde/bincodec"
	"github.com/lk2023060901/serde-go/pkg/serde/serdetest"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

type TextCodecSuite struct {
	suite.Suite
}

func (s *TextCodecSuite) TestNumericBoundary() {
	_, err := UnmarshalString("3000000000", serde.IntBinding[int32])
	s.ErrorIs(err, merr.ErrIncompatibleNumericType)

	u, err := UnmarshalString("3000000000", serde.UintBinding[uint32])
	s.NoError(err)
	s.Equal(uint32(3000000000), u)

	maxU64, err := UnmarshalString("18446744073709551615", serde.UintBinding[uint64])
	s.NoError(err)
	s.Equal(uint64(math.MaxUint64), maxU64)

	_, err = UnmarshalString("18446744073709551616", serde.UintBinding[uint64])
	s.ErrorIs(err, merr.ErrIncompatibleNumericType)

	minInt, err := UnmarshalString("-9223372036854775808", serde.IntBinding[int64])
	s.NoError(err)
	s.Equal(int64(math.MinInt64), minInt)

	_, err = UnmarshalString("-9223372036854775809", serde.IntBinding[int64])
	s.ErrorIs(err, merr.ErrIncompatibleNumericType)

	zero, err := UnmarshalString("-0", serde.IntBinding[int64])
	s.NoError(err)
	s.Equal(int64(0), zero)

	_, err = UnmarshalString("1e400", serde.FloatBinding[float64])
	s.ErrorIs(err, merr.ErrIncompatibleNumericType)

	for _, in := range []string{"99999999999999999999.5", "-18446744073709551616e0", "18446744073709551616E-5"} {
		_, err = UnmarshalString(in, serde.FloatBinding[float64])
		s.ErrorIs(err, merr.ErrIncompatibleNumericType, in)
	}
	f, err := UnmarshalString("18446744073709551615.5", serde.FloatBinding[float64])
	s.NoError(err)
	s.InDelta(1.8446744073709552e19, f, 1e4)
}

func (s *TextCodecSuite) TestFractionalTruncation() {
	i, err := UnmarshalString("-456.21", serde.IntBinding[int32])
	s.NoError(err)
	s.Equal(int32(-456), i)

	f, err := UnmarshalString("-456.21", serde.FloatBinding[float64])
	s.NoError(err)
	s.Equal(-456.21, f)

	e, err := UnmarshalString("2.5E2", serde.IntBinding[int32])
	s.NoError(err)
	s.Equal(int32(250), e)

	neg, err := UnmarshalString("1e-2", serde.FloatBinding[float64])
	s.NoError(err)
	s.Equal(0.01, neg)
}

func (s *TextCodecSuite) TestEnumDualLookup() {
	for _, in := range []string{`"10:October"`, `"October"`, `10`, `"10"`, ` { "10:October" : null } `} {
		m, err := UnmarshalString(in, serdetest.MonthBinding)
		s.NoError(err, in)
		s.Equal(serdetest.October, m, in)
	}

	for _, in := range []string{`"13"`, `"Smarch"`, `13`, `-1`, `"13:Smarch"`} {
		_, err := UnmarshalString(in, serdetest.MonthBinding)
		s.ErrorIs(err, merr.ErrUnknownEnumVariant, in)
	}

	out, err := Marshal(serdetest.October)
	s.NoError(err)
	s.Equal(`"10:October"`, string(out))
}

func (s *TextCodecSuite) TestMissingField() {
	_, err := UnmarshalString(`{"1:day":19,"2:month":"October"}`, serdetest.DateBinding)
	s.ErrorIs(err, merr.ErrMissingField)
	s.Contains(err.Error(), "field=year")

	person := `{"1:name":"Steven","2:age":27,` +
		`"3:birth_date":{"1:day":19,"2:month":10,"3:year":1993},` +
		`"4:pets":[],"88:carBrand":null,"6:IsCool":true,"7:occupation":{"1:Unemployed":null}}`
	_, err = UnmarshalString(person, serdetest.PersonBinding)
	s.ErrorIs(err, merr.ErrMissingField)
	s.Contains(err.Error(), "field=height")

	withNull := strings.Replace(person, `"4:pets":[],`, `"4:pets":[],"5:height":null,`, 1)
	p, err := UnmarshalString(withNull, serdetest.PersonBinding)
	s.NoError(err)
	s.Nil(p.Height)
	s.Nil(p.CarBrand)
	s.Equal(serdetest.Unemployed, p.Occupation.Kind)
	s.Empty(p.Pets)
}

func (s *TextCodecSuite) TestNameOnlyKeys() {
	in := `{
		"day": 1,
		"month": "February",
		"year": 2000,
	}`
	d, err := UnmarshalString(in, serdetest.DateBinding)
	s.NoError(err)
	s.Equal(serdetest.Date{Day: 1, Month: serdetest.February, Year: 2000}, d)

	_, err = UnmarshalString(`{"day":1,"month":2,"year":3,"era":"AD"}`, serdetest.DateBinding)
	s.ErrorIs(err, merr.ErrUnknownField)

	d, err = UnmarshalString(`{"x:day":1,"x:month":"x:May","x:year":2000}`, serdetest.DateBinding)
	s.NoError(err)
	s.Equal(serdetest.Date{Day: 1, Month: serdetest.May, Year: 2000}, d)
}

func (s *TextCodecSuite) TestUnion() {
	o, err := UnmarshalString(`{"hasJob":"Engineer"}`, serdetest.OccupationBinding)
	s.NoError(err)
	s.Equal(serdetest.Occupation{Kind: serdetest.Employed, Job: "Engineer"}, o)

	_, err = UnmarshalString(`{"3:Retired":null}`, serdetest.OccupationBinding)
	s.ErrorIs(err, merr.ErrUnknownUnionVariant)

	_, err = UnmarshalString(`{}`, serdetest.OccupationBinding)
	s.ErrorIs(err, merr.ErrUnknownUnionVariant)

	_, err = UnmarshalString(`{"1":null,"2":"x"}`, serdetest.OccupationBinding)
	s.ErrorIs(err, merr.ErrUnknownUnionVariant)

	_, err = UnmarshalString(`{"2:hasJob":null}`, serdetest.OccupationBinding)
	s.ErrorIs(err, merr.ErrUnimplementedVisit)
}

func (s *TextCodecSuite) TestTrailingComma() {
	b := serde.SliceBinding(serde.IntBinding[int32])
	a, err := UnmarshalString("[1,2,4,8,]", b)
	s.NoError(err)
	c, err := UnmarshalString("[1,2,4,8]", b)
	s.NoError(err)
	s.Equal([]int32{1, 2, 4, 8}, a)
	s.Equal(a, c)

	spaced, err := UnmarshalString(" [ 1 ,\n\t2 , 4,8 , ] ", b)
	s.NoError(err)
	s.Equal(a, spaced)

	empty, err := UnmarshalString("[]", b)
	s.NoError(err)
	s.Empty(empty)

	_, err = UnmarshalString("[,]", b)
	s.ErrorIs(err, merr.ErrParsing)
}

func (s *TextCodecSuite) TestRoundTrip() {
	person := serdetest.SamplePerson()

	compact, err := Marshal(person)
	s.NoError(err)
	s.True(sonic.Valid(compact), string(compact))
	s.NotContains(string(compact), "\n")

	got, err := Unmarshal(compact, serdetest.PersonBinding)
	s.NoError(err)
	s.Equal(person, got)

	pretty, err := MarshalPretty(person)
	s.NoError(err)
	s.True(sonic.Valid(pretty), string(pretty))
	s.Contains(string(pretty), "\n    \"1:name\": \"Steven\",\n")
	s.Contains(string(pretty), "\n        \"2:month\": \"10:October\",\n")

	got, err = Unmarshal(pretty, serdetest.PersonBinding)
	s.NoError(err)
	s.Equal(person, got)

	brand := "Peugeot"
	person.CarBrand = &brand
	person.Height = nil
	person.Occupation = serdetest.Occupation{Kind: serdetest.Unemployed}
	person.Pets = []string{}
	compact, err = Marshal(person)
	s.NoError(err)
	got, err = Unmarshal(compact, serdetest.PersonBinding)
	s.NoError(err)
	s.Equal(person, got)
}

func (s *TextCodecSuite) TestLayout() {
	d := serdetest.Date{Day: 19, Month: serdetest.October, Year: 1993}
	compact, err := Marshal(d)
	s.NoError(err)
	s.Equal(`{"1:day":19,"2:month":"10:October","3:year":1993}`, string(compact))

	pretty, err := MarshalPretty(d)
	s.NoError(err)
	s.Equal("{\n    \"1:day\": 19,\n    \"2:month\": \"10:October\",\n    \"3:year\": 1993\n}", string(pretty))

	empty, err := MarshalPretty(serde.Seq([]string{}, serde.Str))
	s.NoError(err)
	s.Equal("[]", string(empty))

	nested, err := Marshal(serde.Seq([][]int32{{1}, {}}, func(v []int32) serde.Serialize {
		return serde.Seq(v, serde.Int[int32])
	}))
	s.NoError(err)
	s.Equal("[[1],[]]", string(nested))

	f, err := Marshal(serde.Float(2.0))
	s.NoError(err)
	s.Equal("2.0", string(f))
	back, err := Unmarshal(f, serde.FloatBinding[float64])
	s.NoError(err)
	s.Equal(2.0, back)
}

func (s *TextCodecSuite) TestEscapes() {
	raw := "quote\" backslash\\ slash/ \b\f\n\r\t ctrl\x01 é 😀"
	out, err := Marshal(serde.Str(raw))
	s.NoError(err)
	s.True(sonic.Valid(out), string(out))
	s.Contains(string(out), `\u0001`)

	back, err := Unmarshal(out, serde.StringBinding)
	s.NoError(err)
	s.Equal(raw, back)

	v, err := UnmarshalString(`"\u00e9\ud83d\ude00\/"`, serde.StringBinding)
	s.NoError(err)
	s.Equal("é😀/", v)

	lone, err := UnmarshalString(`"\ud83dx"`, serde.StringBinding)
	s.NoError(err)
	s.Equal("\uFFFDx", lone)

	_, err = UnmarshalString(`"\q"`, serde.StringBinding)
	s.ErrorIs(err, merr.ErrParsing)

	_, err = UnmarshalString(`"\u12"`, serde.StringBinding)
	s.ErrorIs(err, merr.ErrUnexpectedEOF)

	_, err = UnmarshalString(`"\uzzzz"`, serde.StringBinding)
	s.ErrorIs(err, merr.ErrParsing)
}

func (s *TextCodecSuite) TestInvalidUTF8() {
	raw := "ok\xff\xfeend"
	out, err := Marshal(serde.Str(raw))
	s.NoError(err)
	s.True(utf8.Valid(out))
	s.True(sonic.Valid(out), string(out))

	back, err := Unmarshal(out, serde.StringBinding)
	s.NoError(err)
	s.Equal("ok\uFFFDend", back)
	s.NotEqual(raw, back)

	// 二进制格式按字节保存字符串，同样的输入往返不变。
	bin, err := bincodec.Marshal(serde.Str(raw))
	s.NoError(err)
	binBack, err := bincodec.Unmarshal(bin, serde.StringBinding)
	s.NoError(err)
	s.Equal(raw, binBack)

	key, err := Marshal(serde.SerializeFunc(func(ser serde.Serializer) error {
		return ser.SerializeEnum(1, "a\xffb")
	}))
	s.NoError(err)
	s.Equal("\"1:a\uFFFDb\"", string(key))
}

func (s *TextCodecSuite) TestMalformed() {
	cases := []struct {
		in   string
		want error
	}{
		{"", merr.ErrUnexpectedEOF},
		{"   ", merr.ErrUnexpectedEOF},
		{"@", merr.ErrParsing},
		{"[1,2", merr.ErrUnexpectedEOF},
		{"[1 2]", merr.ErrParsing},
		{"nul", merr.ErrUnexpectedEOF},
		{"nullx", merr.ErrParsing},
		{"nope", merr.ErrParsing},
		{`"abc`, merr.ErrUnexpectedEOF},
		{"-", merr.ErrUnexpectedEOF},
		{"-x", merr.ErrParsing},
		{"1.", merr.ErrUnexpectedEOF},
		{"1.e3", merr.ErrParsing},
		{"1 2", merr.ErrParsing},
		{`{"a" 1}`, merr.ErrParsing},
		{`{a:1}`, merr.ErrParsing},
		{`{"a":1`, merr.ErrUnexpectedEOF},
		{`{"a":1 "b":2}`, merr.ErrParsing},
	}
	for _, c := range cases {
		err := UnmarshalVisitor([]byte(c.in), acceptAll{})
		s.ErrorIs(err, c.want, c.in)
	}
}

func (s *TextCodecSuite) TestParseErrorOffset() {
	err := UnmarshalVisitor([]byte("[1, @]"), acceptAll{})
	s.ErrorIs(err, merr.ErrParsing)
	s.Contains(err.Error(), "offset=4")
}

func (s *TextCodecSuite) TestSerializeErrors() {
	_, err := Marshal(serde.Float(math.NaN()))
	s.ErrorIs(err, merr.ErrSerialize)

	_, err = Marshal(serde.Float(math.Inf(-1)))
	s.ErrorIs(err, merr.ErrSerialize)

	err = Encode(failingWriter{}, serdetest.SamplePerson())
	s.ErrorIs(err, merr.ErrIoFailed)
	s.ErrorIs(err, errBrokenPipe)

	s.ErrorIs(NewSerializer(nil).EndSeq(), merr.ErrSerialize)
	ser := NewSerializer(nil)
	s.NoError(ser.StartSeq(0))
	s.ErrorIs(ser.EndStruct(), merr.ErrSerialize)
	s.ErrorIs(ser.SerializeStructField(1, "x", serde.Null()), merr.ErrSerialize)

	var buf bytes.Buffer
	s.NoError(Encode(&buf, serdetest.SamplePerson(), WithIndent(2)))
	s.Contains(buf.String(), "\n  \"1:name\"")
}

func (s *TextCodecSuite) TestMultipleValues() {
	d := NewDeserializer(`1 "two" [3]`)
	first, err := serde.Deserialize(d, serde.IntBinding[int32])
	s.NoError(err)
	s.Equal(int32(1), first)
	second, err := serde.Deserialize(d, serde.StringBinding)
	s.NoError(err)
	s.Equal("two", second)
	third, err := serde.Deserialize(d, serde.SliceBinding(serde.IntBinding[int32]))
	s.NoError(err)
	s.Equal([]int32{3}, third)
	s.NoError(d.End())
	s.Equal(11, d.Offset())
}

var errBrokenPipe = errors.New("broken pipe")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errBrokenPipe
}

// acceptAll 接受任何输入，用于只关心语法的测试。
type acceptAll struct{}

func (acceptAll) VisitNull() error                          { return nil }
func (acceptAll) VisitBool(bool) error                      { return nil }
func (acceptAll) VisitSigned(int64) error                   { return nil }
func (acceptAll) VisitUnsigned(uint64) error                { return nil }
func (acceptAll) VisitFloat(float64) error                  { return nil }
func (acceptAll) VisitStr(string) error                     { return nil }
func (acceptAll) VisitSeq(int) (serde.SeqBuilder, error)    { return acceptAll{}, nil }
func (acceptAll) VisitStruct() (serde.StructBuilder, error) { return acceptAll{}, nil }
func (acceptAll) Element() (serde.Visitor, error)           { return acceptAll{}, nil }
func (acceptAll) Member(serde.MemberKey) (serde.Visitor, error) {
	return acceptAll{}, nil
}
func (acceptAll) Finish() error { return nil }

func TestTextCodec(t *testing.T) {
	suite.Run(t, new(TextCodecSuite))
}
