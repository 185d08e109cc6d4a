package store

import "github.com/acme/codereviewd/pkg/apperr"

var errNotFound = apperr.New(apperr.NotFound, "record not found")
