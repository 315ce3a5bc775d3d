package graph

import (
	"fmt"
)

func toCaption(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

func toNumber(v interface{}) *float64 {
	var f float64
	switch t := v.(type) {
	case int64:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case float64:
		f = t
	case float32:
		f = float64(t)
	default:
		return nil
	}
	return &f
}
