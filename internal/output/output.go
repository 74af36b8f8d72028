// Package output renders the JSON envelope printed by CLI subcommands.
package output

import "encoding/json"

type Result struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Error   *string `json:"error"`
}

func Success(data any) string {
	return render(Result{Success: true, Data: data})
}

func Error(err error) string {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	return render(Result{Error: &errMsg})
}

func render(r Result) string {
	b, err := json.Marshal(r)
	if err != nil {
		msg := "failed to encode result: " + err.Error()
		b, _ = json.Marshal(Result{Error: &msg})
	}
	return string(b)
}
