package core

// Allocate splits total into count installments that add up to total exactly.
//
// Every installment receives floor(total/count) cents; the remainder is spread
// one cent at a time over the last installments, so later installments may be
// one cent larger than earlier ones:
//
//	Allocate(100.00, 3) -> [33.33, 33.33, 33.34]
func Allocate(total Money, count int) ([]Money, error) {
	if count <= 0 {
		return nil, ErrInvalidInstallmentCount
	}
	if total.Cents < 0 {
		return nil, ErrNegativeAmount
	}

	base := total.Cents / int64(count)
	remainder := int(total.Cents % int64(count))
	firstBumped := count - remainder

	out := make([]Money, count)
	for i := range out {
		out[i] = Money{Cents: base}
		if i >= firstBumped {
			out[i].Cents++
		}
	}
	return out, nil
}
