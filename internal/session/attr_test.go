package session

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/coplay-garden-go/internal/sdk/onlinesvc"
)

type AttrSuite struct {
	suite.Suite
}

func (s *AttrSuite) TestEncodeOrderedByKey() {
	wires := EncodeAttributes(map[string]Attr{
		"mode":    {Value: StringValue("deathmatch"), Advertise: true},
		"elo":     {Value: IntValue(1500), Advertise: true},
		"ranked":  {Value: BoolValue(true)},
		"version": {Value: DoubleValue(1.5), Advertise: true},
	})

	s.Require().Len(wires, 4)
	s.Equal("elo", wires[0].Key)
	s.Equal("mode", wires[1].Key)
	s.Equal("ranked", wires[2].Key)
	s.Equal("version", wires[3].Key)

	s.Equal(onlinesvc.AttrTypeInt64, wires[0].Type)
	s.EqualValues(1500, *wires[0].Int64Value)
	s.Equal(onlinesvc.VisibilityPublic, wires[0].Visibility)
	s.Equal(onlinesvc.VisibilityPrivate, wires[2].Visibility)
}

func (s *AttrSuite) TestRoundTrip() {
	in := map[string]Attr{
		"mode":   {Value: StringValue("ctf"), Advertise: true},
		"elo":    {Value: IntValue(42)},
		"ratio":  {Value: DoubleValue(0.75), Advertise: true},
		"ranked": {Value: BoolValue(false)},
	}

	out := DecodeAttributes(EncodeAttributes(in))
	s.Require().Len(out, len(in))
	for k, attr := range in {
		s.True(out[k].Value.Equal(attr.Value), "key %s", k)
		s.Equal(attr.Advertise, out[k].Advertise, "key %s", k)
	}
}

func (s *AttrSuite) TestDecodeSkipsUnknownType() {
	v := "x"
	out := DecodeAttributes([]onlinesvc.Attribute{
		{Key: "good", Type: onlinesvc.AttrTypeString, StrValue: &v},
		{Key: "bad", Type: "BLOB"},
	})

	s.Len(out, 1)
	s.Contains(out, "good")
	s.NotContains(out, "bad")
}

func (s *AttrSuite) TestDecodeSkipsMissingValue() {
	out := DecodeAttributes([]onlinesvc.Attribute{
		{Key: "broken", Type: onlinesvc.AttrTypeInt64},
	})
	s.Empty(out)
}

func (s *AttrSuite) TestValueEqual() {
	s.True(IntValue(7).Equal(IntValue(7)))
	s.False(IntValue(7).Equal(IntValue(8)))
	s.False(IntValue(7).Equal(DoubleValue(7)))
	s.True(StringValue("a").Equal(StringValue("a")))
}

func (s *AttrSuite) TestEncodeFilter() {
	f := EncodeFilter("minslotsavailable", IntValue(1), onlinesvc.OpGreaterOrEqual)
	s.Equal(onlinesvc.OpGreaterOrEqual, f.Op)
	s.Equal("minslotsavailable", f.Attribute.Key)
	s.EqualValues(1, *f.Attribute.Int64Value)
}

func TestAttr(t *testing.T) {
	suite.Run(t, new(AttrSuite))
}
