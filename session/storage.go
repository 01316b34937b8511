package session

import (
	"fmt"

	"github.com/go-rod/rod"
)

// readStorage reads every key/value pair out of window[kind] (localStorage
// or sessionStorage) via a scripted snapshot.
func readStorage(page *rod.Page, kind string) (map[string]string, error) {
	res, err := page.Eval(fmt.Sprintf(`() => {
		const out = {};
		for (let i = 0; i < window.%s.length; i++) {
			const k = window.%s.key(i);
			out[k] = window.%s.getItem(k);
		}
		return out;
	}`, kind, kind, kind))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if res == nil || res.Value.Nil() {
		return out, nil
	}
	_ = res.Value.Unmarshal(&out)
	return out, nil
}

// writeStorage writes every key/value pair into window[kind] via scripted
// assignment (spec §4.7 Restore step).
func writeStorage(page *rod.Page, kind string, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	_, err := page.Eval(fmt.Sprintf(`(values) => {
		for (const k in values) {
			window.%s.setItem(k, values[k]);
		}
	}`, kind), values)
	return err
}
