package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Clause is a single call or transfer inside a transaction. A nil To means
// contract deployment.
type Clause struct {
	To    *common.Address
	Value *big.Int
	Data  []byte
}

// clauseAux is used for JSON marshaling.
type clauseAux struct {
	To    *common.Address `json:"to"`
	Value json.RawMessage `json:"value"`
	Data  hexutil.Bytes   `json:"data"`
}

// NewClause creates a clause calling or transferring to the given address.
func NewClause(to common.Address, value *big.Int, data []byte) Clause {
	return Clause{To: &to, Value: value, Data: data}
}

// NewDeployClause creates a contract deployment clause.
func NewDeployClause(value *big.Int, code []byte) Clause {
	return Clause{Value: value, Data: code}
}

// IsCreatingContract returns true for deployment clauses.
func (c *Clause) IsCreatingContract() bool {
	return c.To == nil
}

// ValueOrZero returns the clause value, nil value is treated as zero.
func (c *Clause) ValueOrZero() *big.Int {
	if c.Value == nil {
		return new(big.Int)
	}
	return c.Value
}

// MarshalJSON implements the json.Marshaler interface. Value is always
// marshaled as a decimal string.
func (c Clause) MarshalJSON() ([]byte, error) {
	v, err := json.Marshal(c.ValueOrZero().String())
	if err != nil {
		return nil, err
	}
	return json.Marshal(clauseAux{
		To:    c.To,
		Value: v,
		Data:  c.Data,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface. Value can be
// given as a JSON number, a decimal string or a 0x-prefixed hex string.
func (c *Clause) UnmarshalJSON(data []byte) error {
	aux := new(clauseAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	v, err := parseValue(aux.Value)
	if err != nil {
		return fmt.Errorf("clause value: %w", err)
	}
	c.To = aux.To
	c.Value = v
	c.Data = aux.Data
	return nil
}

// ParseValue parses an unsigned 256-bit value from a decimal or a
// 0x-prefixed hex string.
func ParseValue(s string) (*big.Int, error) {
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex value %q", s)
		}
		var overflow bool
		v, overflow = uint256.FromBig(b)
		if overflow || b.Sign() < 0 {
			return nil, fmt.Errorf("value %q is out of range", s)
		}
	} else {
		v, err = uint256.FromDecimal(s)
		if err != nil {
			return nil, fmt.Errorf("invalid decimal value %q: %w", s, err)
		}
	}
	return v.ToBig(), nil
}

func parseValue(raw json.RawMessage) (*big.Int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return new(big.Int), nil
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
	} else {
		s = string(raw)
	}
	if s == "" {
		return nil, errors.New("empty value")
	}
	return ParseValue(s)
}
