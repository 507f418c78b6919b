package config

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/signalsfoundry/psim/types"
)

// ParseHCL reads an HCL document. Blocks open namespaces, so
//
//	truth {
//	  dt { ns = 5 }
//	}
//
// defines truth.dt.ns. Block labels append further segments. A number is an
// Integer unless its source text has a decimal point or exponent. Tuples of
// numbers are vectors and tuples of tuples are matrices.
func ParseHCL(source string, src []byte) (*Configuration, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, source)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s", ErrConfig, diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%w: %s: unexpected body type %T", ErrConfig, source, file.Body)
	}
	b := newBuilder()
	if err := walkHCL(b, source, src, "", body); err != nil {
		return nil, err
	}
	return b.build(), nil
}

func walkHCL(b *builder, source string, src []byte, prefix string, body *hclsyntax.Body) error {
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, a := range body.Attributes {
		attrs = append(attrs, a)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})
	for _, a := range attrs {
		key := joinKey(prefix, a.Name)
		where := fmt.Sprintf("%s:%d", source, a.SrcRange.Start.Line)
		val, diags := a.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("%w: %s", ErrConfig, diags.Error())
		}
		text := a.Expr.Range().SliceBytes(src)
		v, err := fromCty(val, text)
		if err != nil {
			return fmt.Errorf("%w: %s: %q: %v", ErrConfig, where, key, err)
		}
		if err := b.set(where, key, v); err != nil {
			return err
		}
	}
	for _, blk := range body.Blocks {
		p := joinKey(prefix, blk.Type)
		for _, l := range blk.Labels {
			p = joinKey(p, l)
		}
		if err := walkHCL(b, source, src, p, blk.Body); err != nil {
			return err
		}
	}
	return nil
}

func fromCty(val cty.Value, text []byte) (any, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, fmt.Errorf("value must be known and non-null")
	}
	ty := val.Type()
	switch {
	case ty == cty.Bool:
		var v bool
		err := gocty.FromCtyValue(val, &v)
		return v, err
	case ty == cty.String:
		var v string
		err := gocty.FromCtyValue(val, &v)
		return v, err
	case ty == cty.Number:
		if !bytes.ContainsAny(text, ".eE") {
			var i int64
			if err := gocty.FromCtyValue(val, &i); err == nil {
				return types.Integer(i), nil
			}
		}
		var f float64
		err := gocty.FromCtyValue(val, &f)
		return types.Real(f), err
	case ty.IsTupleType() || ty.IsListType():
		elems := val.AsValueSlice()
		if len(elems) == 0 {
			return nil, fmt.Errorf("empty sequence")
		}
		if et := elems[0].Type(); et.IsTupleType() || et.IsListType() {
			rows := make([][]types.Real, len(elems))
			for i, e := range elems {
				r, err := ctyReals(e)
				if err != nil {
					return nil, fmt.Errorf("row %d: %v", i, err)
				}
				rows[i] = r
			}
			return rows, nil
		}
		return ctyReals(val)
	}
	return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
}

func ctyReals(val cty.Value) ([]types.Real, error) {
	if !val.Type().IsTupleType() && !val.Type().IsListType() {
		return nil, fmt.Errorf("expected a sequence, got %s", val.Type().FriendlyName())
	}
	var out []types.Real
	for _, e := range val.AsValueSlice() {
		var f float64
		if err := gocty.FromCtyValue(e, &f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return strings.Join([]string{prefix, name}, ".")
}
