package document

import "errors"

var ErrFileRequired = errors.New("file is required")
