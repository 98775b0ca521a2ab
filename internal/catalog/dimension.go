package catalog

import (
	"encoding/hex"
	"fmt"
	"net/netip"
	"strconv"
)

// Formatter renders a raw column value for export.
type Formatter func(raw any, siteID int64) (any, error)

// Dimension is the catalog's schema.Dimension implementation.
type Dimension struct {
	Table          string
	Column         string
	Binary         bool
	ActionNameJoin bool
	Formatter      Formatter // nil formats with Raw
}

func (d Dimension) OwnerTable() string    { return d.Table }
func (d Dimension) OwnerColumn() string   { return d.Column }
func (d Dimension) IsBinary() bool        { return d.Binary }
func (d Dimension) JoinsActionName() bool { return d.ActionNameJoin }

// FormatValue applies the dimension's formatter to raw.
func (d Dimension) FormatValue(raw any, siteID int64) (any, error) {
	if d.Formatter == nil {
		return Raw(raw, siteID)
	}
	return d.Formatter(raw, siteID)
}

// Formatter names accepted in catalog files.
const (
	FormatRaw  = "raw"
	FormatIP   = "ip"
	FormatBool = "bool"
	FormatEnum = "enum"
)

// NewFormatter returns the built-in formatter called kind. values is only
// used by FormatEnum.
func NewFormatter(kind string, values map[string]string) (Formatter, error) {
	switch kind {
	case "", FormatRaw:
		return Raw, nil
	case FormatIP:
		return IP, nil
	case FormatBool:
		return Bool, nil
	case FormatEnum:
		if len(values) == 0 {
			return nil, fmt.Errorf("enum formatter requires values")
		}
		return Enum(values), nil
	default:
		return nil, fmt.Errorf("unknown formatter %q", kind)
	}
}

// Raw returns the value unchanged, except that bytes become lowercase hex.
// Only binary columns reach a formatter as bytes.
func Raw(raw any, _ int64) (any, error) {
	if b, ok := raw.([]byte); ok {
		return hex.EncodeToString(b), nil
	}
	return raw, nil
}

// IP renders a 4 or 16 byte binary address in its textual form.
func IP(raw any, _ int64) (any, error) {
	var b []byte
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return nil, fmt.Errorf("ip: unsupported value type %T", raw)
	}

	addr, ok := netip.AddrFromSlice(b)
	if !ok {
		return nil, fmt.Errorf("ip: %d bytes is not an address", len(b))
	}
	return addr.Unmap().String(), nil
}

// Bool renders 0/1 flags as booleans.
func Bool(raw any, _ int64) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	default:
		return nil, fmt.Errorf("bool: unsupported value type %T", raw)
	}
}

// Enum maps stored codes to labels. Unknown codes pass through.
func Enum(values map[string]string) Formatter {
	return func(raw any, _ int64) (any, error) {
		var key string
		switch v := raw.(type) {
		case nil:
			return nil, nil
		case []byte:
			key = string(v)
		default:
			key = fmt.Sprint(v)
		}
		if label, ok := values[key]; ok {
			return label, nil
		}
		return raw, nil
	}
}
