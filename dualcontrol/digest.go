package dualcontrol

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/xraph/issuance/types"
)

// Argument type tags in the canonical encoding.
const (
	tagAddress byte = 0x01
	tagAmount  byte = 0x02
	tagBool    byte = 0x03
	tagUint64  byte = 0x04
	tagString  byte = 0x05
)

// Digest returns the keccak-256 hash of the canonical encoding of op and
// args, together with a readable rendering of each argument. Two
// submissions match exactly when their digests are equal.
//
// Supported argument types are common.Address, types.Amount, bool, uint64
// and string.
func Digest(op string, args ...any) (common.Hash, []string, error) {
	buf := appendString(nil, op)
	rendered := make([]string, 0, len(args))

	for i, a := range args {
		switch v := a.(type) {
		case common.Address:
			buf = append(buf, tagAddress)
			buf = append(buf, v.Bytes()...)
			rendered = append(rendered, v.Hex())
		case types.Amount:
			b := v.Bytes32()
			buf = append(buf, tagAmount)
			buf = append(buf, b[:]...)
			rendered = append(rendered, v.String())
		case bool:
			buf = append(buf, tagBool)
			if v {
				buf = append(buf, 1)
			} else {
				buf = append(buf, 0)
			}
			rendered = append(rendered, strconv.FormatBool(v))
		case uint64:
			buf = append(buf, tagUint64)
			buf = binary.BigEndian.AppendUint64(buf, v)
			rendered = append(rendered, strconv.FormatUint(v, 10))
		case string:
			buf = append(buf, tagString)
			buf = appendString(buf, v)
			rendered = append(rendered, strconv.Quote(v))
		default:
			return common.Hash{}, nil, fmt.Errorf("dualcontrol: argument %d: unsupported type %T", i, a)
		}
	}
	return crypto.Keccak256Hash(buf), rendered, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}
