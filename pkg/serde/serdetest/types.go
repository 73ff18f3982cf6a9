// Package serdetest 提供手写的示例绑定（枚举、记录、联合体），供各编解码器的测试共用。
package serdetest

import (
	"github.com/lk2023060901/serde-go/pkg/serde"
	"github.com/lk2023060901/serde-go/pkg/util/merr"
)

type Month uint8

const (
	January Month = iota + 1
	February
	March
	April
	May
	June
	July
	August
	September
	October
	November
	December
)

var MonthTable = serde.MustEnumTable("Month",
	serde.Variant[Month]{ID: 1, Name: "January", Value: January},
	serde.Variant[Month]{ID: 2, Name: "February", Value: February},
	serde.Variant[Month]{ID: 3, Name: "March", Value: March},
	serde.Variant[Month]{ID: 4, Name: "April", Value: April},
	serde.Variant[Month]{ID: 5, Name: "May", Value: May},
	serde.Variant[Month]{ID: 6, Name: "June", Value: June},
	serde.Variant[Month]{ID: 7, Name: "July", Value: July},
	serde.Variant[Month]{ID: 8, Name: "August", Value: August},
	serde.Variant[Month]{ID: 9, Name: "September", Value: September},
	serde.Variant[Month]{ID: 10, Name: "October", Value: October},
	serde.Variant[Month]{ID: 11, Name: "November", Value: November},
	serde.Variant[Month]{ID: 12, Name: "December", Value: December},
)

func (m Month) Serialize(s serde.Serializer) error {
	return MonthTable.Serialize(m).Serialize(s)
}

func MonthBinding(p *serde.Place[Month]) serde.Visitor {
	return MonthTable.Binding()(p)
}

type Date struct {
	Day   uint8
	Month Month
	Year  uint32
}

var DateFields = serde.MustFields("Date",
	serde.Field{ID: 1, Name: "day"},
	serde.Field{ID: 2, Name: "month"},
	serde.Field{ID: 3, Name: "year"},
)

func (d Date) Serialize(s serde.Serializer) error {
	return serde.SerializeRecord(s, DateFields,
		serde.Uint(d.Day),
		d.Month,
		serde.Uint(d.Year),
	)
}

func DateBinding(p *serde.Place[Date]) serde.Visitor {
	return serde.NewRecordVisitor("Date", func() *serde.RecordBuilder {
		out := p.Ptr()
		*out = Date{}
		return serde.NewRecordBuilder(DateFields, p.Commit,
			serde.SlotOf(&out.Day, serde.UintBinding[uint8]),
			serde.SlotOf(&out.Month, MonthBinding),
			serde.SlotOf(&out.Year, serde.UintBinding[uint32]),
		)
	})
}

type OccupationKind uint32

const (
	Unemployed OccupationKind = 1
	Employed   OccupationKind = 2
)

// Occupation 是联合体：Unemployed 不带负载，Employed 携带职位名称。
type Occupation struct {
	Kind OccupationKind
	Job  string
}

var OccupationFields = serde.MustFields("Occupation",
	serde.Field{ID: uint32(Unemployed), Name: "Unemployed"},
	serde.Field{ID: uint32(Employed), Name: "hasJob"},
)

func (o Occupation) Serialize(s serde.Serializer) error {
	switch o.Kind {
	case Unemployed:
		return serde.SerializeVariant(s, OccupationFields.List[0], serde.Unit())
	case Employed:
		return serde.SerializeVariant(s, OccupationFields.List[1], serde.Str(o.Job))
	default:
		return merr.WrapErrSerialize("unknown occupation kind", OccupationFields.Name)
	}
}

func OccupationBinding(p *serde.Place[Occupation]) serde.Visitor {
	return &occupationVisitor{
		UnimplementedVisitor: serde.UnimplementedVisitor{Target: OccupationFields.Name},
		place:                p,
	}
}

type occupationVisitor struct {
	serde.UnimplementedVisitor
	place *serde.Place[Occupation]
}

func (v *occupationVisitor) VisitStruct() (serde.StructBuilder, error) {
	out := v.place.Ptr()
	*out = Occupation{}
	return &occupationBuilder{place: v.place, out: out}, nil
}

type occupationBuilder struct {
	place  *serde.Place[Occupation]
	out    *Occupation
	filled func() bool
	unit   struct{}
}

func (b *occupationBuilder) Member(key serde.MemberKey) (serde.Visitor, error) {
	if b.filled != nil {
		return nil, merr.WrapErrUnknownUnionVariant(OccupationFields.Name, key, "more than one variant")
	}
	idx, ok := OccupationFields.Index(key)
	if !ok {
		return nil, merr.WrapErrUnknownUnionVariant(OccupationFields.Name, key)
	}
	b.out.Kind = OccupationKind(OccupationFields.List[idx].ID)
	switch b.out.Kind {
	case Unemployed:
		p := serde.NewPlace(&b.unit)
		b.filled = p.Filled
		return serde.UnitBinding(p), nil
	default:
		p := serde.NewPlace(&b.out.Job)
		b.filled = p.Filled
		return serde.StringBinding(p), nil
	}
}

func (b *occupationBuilder) Finish() error {
	if b.filled == nil {
		return merr.WrapErrUnknownUnionVariant(OccupationFields.Name, "", "no variant")
	}
	if !b.filled() {
		return merr.WrapErrValueNotProduced(OccupationFields.Name)
	}
	b.place.Commit()
	return nil
}

type Person struct {
	Name       string
	Age        int16
	BirthDate  Date
	Pets       []string
	Height     *float32
	CarBrand   *string
	IsCool     bool
	Occupation Occupation
}

var PersonFields = serde.MustFields("Person",
	serde.Field{ID: 1, Name: "name"},
	serde.Field{ID: 2, Name: "age"},
	serde.Field{ID: 3, Name: "birth_date"},
	serde.Field{ID: 4, Name: "pets"},
	serde.Field{ID: 5, Name: "height"},
	serde.Field{ID: 88, Name: "carBrand"},
	serde.Field{ID: 6, Name: "IsCool"},
	serde.Field{ID: 7, Name: "occupation"},
)

func (p Person) Serialize(s serde.Serializer) error {
	return serde.SerializeRecord(s, PersonFields,
		serde.Str(p.Name),
		serde.Int(p.Age),
		p.BirthDate,
		serde.Seq(p.Pets, serde.Str),
		serde.Opt(p.Height, serde.Float[float32]),
		serde.Opt(p.CarBrand, serde.Str),
		serde.Bool(p.IsCool),
		p.Occupation,
	)
}

func PersonBinding(p *serde.Place[Person]) serde.Visitor {
	return serde.NewRecordVisitor("Person", func() *serde.RecordBuilder {
		out := p.Ptr()
		*out = Person{}
		return serde.NewRecordBuilder(PersonFields, p.Commit,
			serde.SlotOf(&out.Name, serde.StringBinding),
			serde.SlotOf(&out.Age, serde.IntBinding[int16]),
			serde.SlotOf(&out.BirthDate, DateBinding),
			serde.SlotOf(&out.Pets, serde.SliceBinding(serde.StringBinding)),
			serde.SlotOf(&out.Height, serde.OptionalBinding(serde.FloatBinding[float32])),
			serde.SlotOf(&out.CarBrand, serde.OptionalBinding(serde.StringBinding)),
			serde.SlotOf(&out.IsCool, serde.BoolBinding),
			serde.SlotOf(&out.Occupation, OccupationBinding),
		)
	})
}

// SamplePerson 返回一个字段齐全的示例值。
func SamplePerson() Person {
	height := float32(1.735)
	return Person{
		Name:      "Steven",
		Age:       27,
		BirthDate: Date{Day: 19, Month: October, Year: 1993},
		Pets:      []string{"Bouboul", "Monsieur Puppy"},
		Height:    &height,
		IsCool:    true,
		Occupation: Occupation{
			Kind: Employed,
			Job:  "Engineer",
		},
	}
}
