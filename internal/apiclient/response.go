package apiclient

import (
	"encoding/json"

	"github.com/wichananm65/storefront/internal/product"
)

type flag int

const (
	absentFlag flag = iota
	trueFlag
	falseFlag
)

// envelope is the loose response shape of the write endpoints. The fields
// may sit at the top level or one level down under "payload" or "data".
type envelope struct {
	Success *bool           `json:"success"`
	Token   string          `json:"token"`
	Payload json.RawMessage `json:"payload"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) nested() []envelope {
	var out []envelope
	for _, raw := range []json.RawMessage{e.Payload, e.Data} {
		var n envelope
		if len(raw) > 0 && json.Unmarshal(raw, &n) == nil {
			out = append(out, n)
		}
	}
	return out
}

func (e envelope) success() flag {
	if e.Success != nil {
		if *e.Success {
			return trueFlag
		}
		return falseFlag
	}
	for _, n := range e.nested() {
		if n.Success != nil {
			if *n.Success {
				return trueFlag
			}
			return falseFlag
		}
	}
	return absentFlag
}

func (e envelope) token() string {
	if e.Token != "" {
		return e.Token
	}
	for _, n := range e.nested() {
		if n.Token != "" {
			return n.Token
		}
	}
	return ""
}

// checkSuccess returns nil only for an explicit success=true.
func checkSuccess(body []byte) error {
	var e envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return ErrMalformedResponse
	}
	switch e.success() {
	case trueFlag:
		return nil
	case falseFlag:
		return ErrRejected
	default:
		return ErrMalformedResponse
	}
}

func decodeProducts(body []byte) ([]product.Product, error) {
	var list []product.Product
	if err := json.Unmarshal(body, &list); err == nil {
		if list == nil {
			list = []product.Product{}
		}
		return list, nil
	}
	var wrapped struct {
		Data *[]product.Product `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil || wrapped.Data == nil {
		return nil, ErrMalformedResponse
	}
	if *wrapped.Data == nil {
		return []product.Product{}, nil
	}
	return *wrapped.Data, nil
}
