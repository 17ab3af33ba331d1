package dom

import "slices"

// input types that carry no user-entered value.
var nonValueInputTypes = []string{"submit", "button", "reset", "image", "hidden"}

// Value returns the current value of a form control: the value attribute
// of an input, the text of a textarea, or the selected option's value of a
// select (the first option when none is marked selected).
func (e *Element) Value() string {
	switch e.Tag() {
	case "input", "button":
		v, _ := e.Attr("value")
		return v
	case "textarea":
		return e.TextContent()
	case "select":
		opts := e.ElementsByTag("option")
		for _, o := range opts {
			if _, ok := o.Attr("selected"); ok {
				return o.optionValue()
			}
		}
		if len(opts) > 0 {
			return opts[0].optionValue()
		}
		return ""
	case "option":
		return e.optionValue()
	default:
		return ""
	}
}

// SetValue updates a form control. For a select, the first option whose
// value equals v becomes the only selected option.
func (e *Element) SetValue(v string) {
	switch e.Tag() {
	case "input", "button":
		e.SetAttr("value", v)
	case "textarea":
		e.SetTextContent(v)
	case "select":
		matched := false
		for _, o := range e.ElementsByTag("option") {
			if !matched && o.optionValue() == v {
				o.SetAttr("selected", "")
				matched = true
				continue
			}
			o.RemoveAttr("selected")
		}
	case "option":
		e.SetAttr("value", v)
	}
}

// Reset clears every value-carrying control inside a form back to empty or
// unselected.
func (e *Element) Reset() {
	for _, in := range e.ElementsByTag("input") {
		t, _ := in.Attr("type")
		if slices.Contains(nonValueInputTypes, t) {
			continue
		}
		in.RemoveAttr("value")
	}
	for _, ta := range e.ElementsByTag("textarea") {
		ta.SetTextContent("")
	}
	for _, sel := range e.ElementsByTag("select") {
		for _, o := range sel.ElementsByTag("option") {
			o.RemoveAttr("selected")
		}
	}
}

func (e *Element) optionValue() string {
	if v, ok := e.Attr("value"); ok {
		return v
	}
	return e.TextContent()
}
