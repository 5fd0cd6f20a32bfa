package b3Scraper

import (
	"encoding/json"
	"fmt"
)

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func listOptionsJS(selectSelector string) string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s + ' option')).map(o => ({text: o.textContent.trim(), value: o.value}))`,
		jsString(selectSelector))
}

type pageState struct {
	Value string `json:"value"`
	Rows  int    `json:"rows"`
}

func pageStateJS(selectSelector, tableSelector string) string {
	return fmt.Sprintf(`(() => {
	const sel = document.querySelector(%s);
	return {value: sel ? sel.value : "", rows: document.querySelectorAll(%s + ' tbody tr').length};
})()`, jsString(selectSelector), jsString(tableSelector))
}

func setValueJS(selectSelector, value string) string {
	return fmt.Sprintf(`(() => {
	const sel = document.querySelector(%s);
	sel.value = %s;
	return sel.value;
})()`, jsString(selectSelector), jsString(value))
}

// The page re-renders the table from a change listener; setting .value alone
// does not trigger it.
func dispatchChangeJS(selectSelector string) string {
	return fmt.Sprintf(`document.querySelector(%s).dispatchEvent(new Event('change', {bubbles: true}))`,
		jsString(selectSelector))
}

func rowCountJS(tableSelector string) string {
	return fmt.Sprintf(`document.querySelectorAll(%s + ' tbody tr').length`, jsString(tableSelector))
}

// rowsChangedJS is truthy once the table no longer holds before rows.
func rowsChangedJS(tableSelector string, before int) string {
	return fmt.Sprintf(`%s !== %d`, rowCountJS(tableSelector), before)
}
