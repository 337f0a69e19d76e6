package validation

import (
	"fmt"
	"regexp"
	"strconv"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"fatura/internal/core"
)

// Default messages shown to the user.
const (
	MsgRequired      = "Campo obrigatório"
	MsgEmail         = "Email inválido"
	MsgPasswordMatch = "As senhas não coincidem"
	MsgInvalidCPF    = "CPF inválido"
	MsgInvalidFormat = "Formato inválido"
	MsgEndNumbers    = "Últimos 4 dígitos inválidos"
	MsgDayRange      = "Dia deve estar entre 1 e 31"
	MsgTotalLimit    = "Limite deve ser maior que zero"
	MsgValue         = "Valor deve ser maior que zero"
	MsgNegative      = "Valor não pode ser negativo"
	MsgInstallments  = "Parcelas devem estar entre 1 e 36"
	MsgInvalidDate   = "Data inválida"
	MsgUsernameTaken = "Usuário já cadastrado"
)

func MsgMinLength(n int) string { return fmt.Sprintf("Mínimo %d caracteres", n) }
func MsgMaxLength(n int) string { return fmt.Sprintf("Máximo %d caracteres", n) }

// Rule yields the ozzo rule checking one trimmed field value. Form carries
// the other fields for cross-field rules.
//
// Every rule except Required accepts an empty value, so optional fields only
// get checked once filled in.
type Rule func(form Form) ozzo.Rule

func static(r ozzo.Rule) Rule {
	return func(Form) ozzo.Rule { return r }
}

func Required() Rule {
	return static(ozzo.Required.Error(MsgRequired))
}

func MinLength(n int) Rule {
	return static(ozzo.RuneLength(n, 0).Error(MsgMinLength(n)))
}

func MaxLength(n int) Rule {
	return static(ozzo.RuneLength(0, n).Error(MsgMaxLength(n)))
}

func Pattern(re *regexp.Regexp, msg string) Rule {
	return static(ozzo.Match(re).Error(msg))
}

func Email() Rule {
	return static(is.EmailFormat.Error(MsgEmail))
}

// filled wraps check so it only runs on non-empty strings.
func filled(code string, check func(value string) string) Rule {
	return static(ozzo.By(func(v interface{}) error {
		value, _ := v.(string)
		if value == "" {
			return nil
		}
		if msg := check(value); msg != "" {
			return ozzo.NewError(code, msg)
		}
		return nil
	}))
}

// IntRange accepts whole numbers in [min, max].
func IntRange(min, max int, msg string) Rule {
	return filled("validation_int_range", func(value string) string {
		n, err := strconv.Atoi(value)
		if err != nil {
			return MsgInvalidFormat
		}
		if n < min || n > max {
			return msg
		}
		return ""
	})
}

// PositiveAmount accepts decimal amounts ("1299.99" or "1299,99") above zero.
func PositiveAmount(msg string) Rule {
	return filled("validation_positive_amount", func(value string) string {
		m, err := core.ParseDecimal(value)
		if err != nil {
			return MsgInvalidFormat
		}
		if m.Cents <= 0 {
			return msg
		}
		return ""
	})
}

func NonNegativeAmount(msg string) Rule {
	return filled("validation_non_negative_amount", func(value string) string {
		m, err := core.ParseDecimal(value)
		if err != nil {
			return MsgInvalidFormat
		}
		if m.Cents < 0 {
			return msg
		}
		return ""
	})
}

// DateLayout accepts values that parse with any of layouts.
func DateLayout(layouts ...string) Rule {
	return filled("validation_date", func(value string) string {
		if _, err := parseTime(value, layouts); err != nil {
			return MsgInvalidDate
		}
		return ""
	})
}

// EqualsField requires the value to match another field of the form.
func EqualsField(other, msg string) Rule {
	return func(form Form) ozzo.Rule {
		return ozzo.In(form.Get(other)).Error(msg)
	}
}
