package main

import (
	"fmt"
	"os"

	dErrors "roster/pkg/domain-errors"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describe(err))
		os.Exit(1)
	}
}

// describe renders domain errors as "code: message" so scripts can match on
// the code.
func describe(err error) string {
	if code := dErrors.CodeOf(err); code != dErrors.CodeInternal {
		return fmt.Sprintf("%s: %s", code, dErrors.MessageOf(err))
	}
	return err.Error()
}
