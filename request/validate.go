// Copyright 2021 The httpipe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var validate *validator.Validate
var translator ut.Translator

func init() {
	validate = validator.New()
	var ok bool
	translator, ok = ut.New(en.New(), en.New()).GetTranslator("en")
	if !ok {
		panic("httpipe/request: failed to get 'en' translator")
	}

	if err := en_translations.RegisterDefaultTranslations(validate, translator); err != nil {
		panic(err)
	}
}

// check validates o against its declared struct tags. The first failing
// field is reported as a ValidationError wrapping the full validator
// error.
func (o *Options) check() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var verrors validator.ValidationErrors
	if !errors.As(err, &verrors) || len(verrors) == 0 {
		return &ValidationError{Field: "Options", Reason: "cannot validate", Err: err}
	}

	return &ValidationError{
		Field:  verrors[0].Field(),
		Reason: verrors[0].Translate(translator),
		Err:    err,
	}
}
