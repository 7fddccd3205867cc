package frontend

import "fmt"

// TranslationError marks a file that could not be translated. The build
// carries on without the file unless strict mode is set.
type TranslationError struct {
	File     string
	Language string
	Err      error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translate %s (%s): %v", e.File, e.Language, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }
