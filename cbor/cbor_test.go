package cbor

import (
	"bytes"
	"encoding/hex"
	"testing"

	refcbor "github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/openattest/go-appattest/limits"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestDecodeIntegers(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	testCases := map[string]struct {
		input    string
		wantType Type
		wantUint uint64
		wantInt  int64
	}{
		"zero":               {input: "00", wantType: TypeUint, wantUint: 0},
		"inline max":         {input: "17", wantType: TypeUint, wantUint: 23},
		"one byte arg":       {input: "18ff", wantType: TypeUint, wantUint: 255},
		"two byte arg":       {input: "190100", wantType: TypeUint, wantUint: 256},
		"eight byte arg":     {input: "1b001122334455667788", wantType: TypeUint, wantUint: 0x1122334455667788},
		"negative one":       {input: "20", wantType: TypeNegInt, wantInt: -1},
		"negative four byte": {input: "3affffffff", wantType: TypeNegInt, wantInt: -4294967296},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			v, err := Decode(mustHex(t, tc.input))
			require.NoError(err)
			assert.Equal(tc.wantType, v.Type)
			if tc.wantType == TypeUint {
				assert.Equal(tc.wantUint, v.Uint)
			} else {
				assert.Equal(tc.wantInt, v.Int)
			}
		})
	}
}

func TestDecodeNegativeOverflow(t *testing.T) {
	assert := assert.New(t)

	// -1 - 2^64-1 does not fit an int64.
	_, err := Decode(mustHex(t, "3bffffffffffffffff"))
	var ovErr *IntegerOverflowError
	assert.ErrorAs(err, &ovErr)
}

func TestDecodeStrings(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	v, err := Decode(mustHex(t, "43010203"))
	require.NoError(err)
	assert.Equal(TypeBytes, v.Type)
	assert.Equal([]byte{1, 2, 3}, v.Bytes)

	v, err = Decode(mustHex(t, "6568656c6c6f"))
	require.NoError(err)
	assert.Equal(TypeText, v.Type)
	assert.Equal("hello", v.Text)

	_, err = Decode(mustHex(t, "62fffe"))
	var utf8Err *InvalidUTF8Error
	assert.ErrorAs(err, &utf8Err)
}

func TestDecodeArray(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	v, err := Decode(mustHex(t, "8301820203820405"))
	require.NoError(err)
	assert.Equal(TypeArray, v.Type)
	require.Len(v.Array, 3)
	assert.Equal(uint64(1), v.Array[0].Uint)
	require.Len(v.Array[1].Array, 2)
	assert.Equal(uint64(3), v.Array[1].Array[1].Uint)
}

func TestDecodeMapKeepsOrderAndDuplicates(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// {1: "a", 1: "b", "k": 2}
	v, err := Decode(mustHex(t, "a3016161016162616b02"))
	require.NoError(err)
	assert.Equal(TypeMap, v.Type)
	require.Len(v.Map, 3)

	// Wire order survives, duplicates are not collapsed.
	assert.Equal("a", v.Map[0].Value.Text)
	assert.Equal("b", v.Map[1].Value.Text)

	// Typed lookups resolve first-wins.
	got, ok := v.MapGetInt(1)
	require.True(ok)
	assert.Equal("a", got.Text)

	got, ok = v.MapGetText("k")
	require.True(ok)
	assert.Equal(uint64(2), got.Uint)

	_, ok = v.MapGetText("missing")
	assert.False(ok)
}

func TestDecodeTag(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// 18([]) is the COSE_Sign1 tag around an empty array.
	v, err := Decode(mustHex(t, "d280"))
	require.NoError(err)
	assert.Equal(TypeTag, v.Type)
	assert.Equal(uint64(18), v.TagNumber)
	require.NotNil(v.Tagged)
	assert.Equal(TypeArray, v.Tagged.Type)
}

func TestDecodeSimpleValues(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	testCases := map[string]struct {
		input string
		want  Value
	}{
		"false":          {input: "f4", want: Value{Type: TypeBool, Bool: false}},
		"true":           {input: "f5", want: Value{Type: TypeBool, Bool: true}},
		"null":           {input: "f6", want: Value{Type: TypeNull}},
		"undefined":      {input: "f7", want: Value{Type: TypeUndefined}},
		"small simple":   {input: "f0", want: Value{Type: TypeSimple, Simple: 16}},
		"encoded simple": {input: "f8ff", want: Value{Type: TypeSimple, Simple: 255}},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			v, err := Decode(mustHex(t, tc.input))
			require.NoError(err)
			tc.want.Raw = v.Raw
			assert.Equal(tc.want, v)
		})
	}
}

func TestDecodeRejectsFloats(t *testing.T) {
	assert := assert.New(t)

	for _, input := range []string{"f93c00", "fa47c35000", "fb3ff199999999999a"} {
		_, err := Decode(mustHex(t, input))
		var unsupErr *UnsupportedTypeError
		assert.ErrorAs(err, &unsupErr, "input %s", input)
	}
}

func TestDecodeRejectsIndefiniteLength(t *testing.T) {
	assert := assert.New(t)

	for _, input := range []string{"9f01ff", "bf616101ff", "5f42010243030405ff", "7f61616161ff"} {
		_, err := Decode(mustHex(t, input))
		var unsupErr *UnsupportedTypeError
		assert.ErrorAs(err, &unsupErr, "input %s", input)
	}
}

func TestDecodeRejectsReservedInfo(t *testing.T) {
	assert := assert.New(t)

	_, err := Decode(mustHex(t, "1c"))
	var initErr *InvalidInitialByteError
	assert.ErrorAs(err, &initErr)
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	_, err := Decode(mustHex(t, "0001"))
	var extraErr *ExtraneousDataError
	require.ErrorAs(err, &extraErr)
	assert.Equal(1, extraErr.Remaining)

	v, rest, err := DecodePrefix(mustHex(t, "0001"))
	require.NoError(err)
	assert.Equal(uint64(0), v.Uint)
	assert.Equal([]byte{0x01}, rest)
}

func TestDecodeTruncated(t *testing.T) {
	assert := assert.New(t)

	for _, input := range []string{"", "19", "1a0102", "4403", "63ab", "8201", "a101"} {
		_, err := Decode(mustHex(t, input))
		var truncErr *TruncatedError
		assert.ErrorAs(err, &truncErr, "input %q", input)
	}
}

func TestDecodeHugeContainerCountFailsFast(t *testing.T) {
	assert := assert.New(t)

	// An array claiming 2^31-1 elements in a 5-byte input must fail on
	// the count, not after allocating anything.
	_, err := Decode(mustHex(t, "9a7fffffff"))
	var limErr *LimitError
	assert.ErrorAs(err, &limErr)
}

func TestDecodeLimits(t *testing.T) {
	assert := assert.New(t)

	l := limits.Default()
	l.MaxDepth = 2
	_, err := DecodeWithLimits(mustHex(t, "81818100"), l)
	var limErr *LimitError
	assert.ErrorAs(err, &limErr)
	assert.Equal("nesting depth", limErr.What)

	l = limits.Default()
	l.MaxChildren = 2
	_, err = DecodeWithLimits(mustHex(t, "83010203"), l)
	assert.ErrorAs(err, &limErr)
	assert.Equal("container size", limErr.What)

	l = limits.Default()
	l.MaxValueBytes = 2
	_, err = DecodeWithLimits(mustHex(t, "43010203"), l)
	assert.ErrorAs(err, &limErr)
	assert.Equal("value bytes", limErr.What)

	l = limits.Default()
	l.MaxTotalBytes = 1
	_, err = DecodeWithLimits(mustHex(t, "4100"), l)
	assert.ErrorAs(err, &limErr)
}

func TestDecodeDeterministic(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	// Decoding the same buffer twice yields structurally equal values,
	// tags and nested containers included.
	input := mustHex(t, "d2a26161820102616243aabbcc")
	first, err := Decode(input)
	require.NoError(err)
	second, err := Decode(input)
	require.NoError(err)
	assert.Equal(first, second)
}

func TestRawSpans(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	input := mustHex(t, "a26161820102616243aabbcc")
	v, err := Decode(input)
	require.NoError(err)
	assert.Equal(input, v.Raw)

	// Nested raw spans alias the same buffer regions.
	arr := v.Map[0].Value
	assert.Equal(mustHex(t, "820102"), arr.Raw)
	assert.Equal(mustHex(t, "01"), arr.Array[0].Raw)
}

func TestInt64Accessor(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	n, err := Value{Type: TypeUint, Uint: 42}.Int64()
	require.NoError(err)
	assert.EqualValues(42, n)

	n, err = Value{Type: TypeNegInt, Int: -7}.Int64()
	require.NoError(err)
	assert.EqualValues(-7, n)

	_, err = Value{Type: TypeUint, Uint: 1 << 63}.Int64()
	var ovErr *IntegerOverflowError
	assert.ErrorAs(err, &ovErr)

	_, err = Value{Type: TypeText}.Int64()
	var typeErr *UnexpectedTypeError
	assert.ErrorAs(err, &typeErr)
}

func TestDecodeAgreesWithReferenceEncoder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	type sample struct {
		Name  string `cbor:"1,keyasint"`
		Blob  []byte `cbor:"2,keyasint"`
		Count int64  `cbor:"3,keyasint"`
	}
	encoded, err := refcbor.Marshal(sample{Name: "leaf", Blob: []byte{0xde, 0xad}, Count: -3})
	require.NoError(err)

	v, err := Decode(encoded)
	require.NoError(err)
	require.Equal(TypeMap, v.Type)

	name, ok := v.MapGetInt(1)
	require.True(ok)
	assert.Equal("leaf", name.Text)

	blob, ok := v.MapGetInt(2)
	require.True(ok)
	assert.Equal([]byte{0xde, 0xad}, blob.Bytes)

	count, ok := v.MapGetInt(3)
	require.True(ok)
	n, err := count.Int64()
	require.NoError(err)
	assert.EqualValues(-3, n)
}

func TestReferenceDecoderAgreesWithFixtures(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	input := mustHex(t, "8301820203820405")
	v, err := Decode(input)
	require.NoError(err)

	var ref []any
	require.NoError(refcbor.Unmarshal(input, &ref))
	require.Len(ref, len(v.Array))
	assert.EqualValues(1, ref[0])
}

func FuzzDecode(f *testing.F) {
	f.Add([]byte{0x18, 0xff})
	f.Add([]byte{0xa2, 0x01, 0x61, 0x61, 0x01, 0x61, 0x62})
	f.Add([]byte{0xd2, 0x84, 0x40, 0xa0, 0xf6, 0x40})
	f.Add([]byte{0xfb, 0x3f, 0xf1, 0x99, 0x99, 0x99, 0x99, 0x99, 0x9a})
	f.Fuzz(func(t *testing.T, a []byte) {
		v, err := Decode(a)
		if err != nil {
			return
		}
		// A successful decode spans the whole input and is idempotent.
		assert := assert.New(t)
		if !bytes.Equal(a, v.Raw) {
			t.Fatalf("raw span does not match input")
		}
		again, err := Decode(v.Raw)
		assert.NoError(err)
		assert.Equal(v.Type, again.Type)
	})
}
