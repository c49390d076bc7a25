package confirm

import "testing"

func TestNormalizeISBN(t *testing.T) {
	t.Parallel()

	valid := map[string]string{
		"9780441013593":     "9780441013593",
		"978-0-441-01359-3": "9780441013593",
		"978 0 441 01359 3": "9780441013593",
		"0441013597":        "0441013597",
		"0-441-01359-7":     "0441013597",
		"043942089X":        "043942089X",
		"043942089x":        "043942089X",
	}
	for in, want := range valid {
		got, ok := NormalizeISBN(in)
		if !ok || got != want {
			t.Fatalf("NormalizeISBN(%q) = %q, %v; want %q, true", in, got, ok, want)
		}
	}

	invalid := []string{
		"",
		"123",
		"9780441013594",  // битая контрольная сумма
		"0441013598",     // битая контрольная сумма
		"X441013597",     // X не на последней позиции
		"97804410135931", // 14 знаков
		"исбн",
		"97804а1013593",
	}
	for _, in := range invalid {
		if got, ok := NormalizeISBN(in); ok {
			t.Fatalf("NormalizeISBN(%q) = %q, true; want rejection", in, got)
		}
	}
}
