package confirm

// NormalizeISBN убирает дефисы/пробелы и проверяет контрольную сумму
// ISBN-10/13. Возвращает каноничную форму и флаг валидности.
func NormalizeISBN(raw string) (string, bool) {
	var buf []byte
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case ch >= '0' && ch <= '9':
			buf = append(buf, ch)
		case ch == 'x' || ch == 'X':
			buf = append(buf, 'X')
		case ch == '-' || ch == ' ':
			// разделители допустимы
		default:
			return "", false
		}
	}
	s := string(buf)
	switch len(s) {
	case 10:
		return s, validISBN10(s)
	case 13:
		return s, validISBN13(s)
	default:
		return "", false
	}
}

// validISBN10: сумма digit*вес (10..1) делится на 11, 'X' — только
// в контрольной позиции и значит 10.
func validISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		var v int
		switch {
		case s[i] >= '0' && s[i] <= '9':
			v = int(s[i] - '0')
		case s[i] == 'X' && i == 9:
			v = 10
		default:
			return false
		}
		sum += v * (10 - i)
	}
	return sum%11 == 0
}

// validISBN13: веса 1/3 попеременно, сумма делится на 10.
func validISBN13(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		v := int(s[i] - '0')
		if i%2 == 1 {
			v *= 3
		}
		sum += v
	}
	return sum%10 == 0
}
