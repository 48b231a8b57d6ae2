package e2etest

import (
	"fmt"
	neturl "net/url"

	"github.com/PuerkitoBio/goquery"
)

// FindInputForLabel finds the input element associated with a label in the given form.
func FindInputForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	label := form.Find(fmt.Sprintf("label:contains(%q)", labelText))
	if label.Length() == 0 {
		return nil, fmt.Errorf("label not found: %s", labelText)
	}

	var input *goquery.Selection
	if id, exists := label.Attr("for"); exists {
		input = form.Find(fmt.Sprintf("input#%s,textarea#%s", id, id))
	} else {
		input = label.Find("input")
	}

	if input.Length() == 0 {
		return nil, fmt.Errorf("input not found for label: %s", labelText)
	}

	return input, nil
}

// FindSelectForLabel finds the select element associated with a label in the given form.
func FindSelectForLabel(form *goquery.Selection, labelText string) (*goquery.Selection, error) {
	label := form.Find(fmt.Sprintf("label:contains(%q)", labelText))
	if label.Length() == 0 {
		return nil, fmt.Errorf("label not found: %s", labelText)
	}

	var selectElement *goquery.Selection
	if id, exists := label.Attr("for"); exists {
		selectElement = form.Find(fmt.Sprintf("select#%s", id))
	} else {
		selectElement = label.Find("select")
	}

	if selectElement.Length() == 0 {
		return nil, fmt.Errorf("select element not found for label: %s", labelText)
	}

	return selectElement, nil
}

// FindForm finds a form in the doc identified with action formActionUrlPath and returns the form selection.
func FindForm(doc *goquery.Document, formActionURLPath string) (*goquery.Selection, error) {
	form := doc.Find(fmt.Sprintf("form[action='%s']", formActionURLPath))
	if form.Length() == 0 {
		return nil, fmt.Errorf("form not found: %s", formActionURLPath)
	}
	return form.First(), nil
}

// FormValues collects the values a browser would submit for form without user interaction.
func FormValues(form *goquery.Selection) neturl.Values {
	values := neturl.Values{}
	form.Find("input[name]").Each(func(_ int, input *goquery.Selection) {
		name, _ := input.Attr("name")
		value, _ := input.Attr("value")
		switch input.AttrOr("type", "text") {
		case "checkbox", "radio":
			if _, checked := input.Attr("checked"); !checked {
				return
			}
			if value == "" {
				value = "on"
			}
		case "submit", "button", "reset":
			return
		}
		values.Add(name, value)
	})
	form.Find("textarea[name]").Each(func(_ int, textarea *goquery.Selection) {
		values.Add(textarea.AttrOr("name", ""), textarea.Text())
	})
	form.Find("select[name]").Each(func(_ int, sel *goquery.Selection) {
		option := sel.Find("option[selected]").First()
		if option.Length() == 0 {
			option = sel.Find("option").First()
		}
		if option.Length() == 0 {
			return
		}
		values.Add(sel.AttrOr("name", ""), option.AttrOr("value", option.Text()))
	})
	return values
}
