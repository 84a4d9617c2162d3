package core

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	return itoa64(int64(n))
}

// itoa64 converts a 64-bit integer to a string
func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	u := uint64(n)
	if negative {
		u = uint64(-n)
	}

	var buf [20]byte
	pos := len(buf)
	for u > 0 {
		pos--
		buf[pos] = byte('0' + u%10)
		u /= 10
	}
	if negative {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// utoa converts an unsigned integer to a string
func utoa(n uint64) string {
	if n == 0 {
		return "0"
	}

	var buf [20]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

// groupThousands formats n with a comma between groups of three digits
func groupThousands(n uint64) string {
	digits := utoa(n)
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}

	out := make([]byte, 0, len(digits)+len(digits)/3)
	out = append(out, digits[:lead]...)
	for i := lead; i < len(digits); i += 3 {
		out = append(out, ',')
		out = append(out, digits[i:i+3]...)
	}
	return string(out)
}

// valueToString converts a dictionary constant to its string form
func valueToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int:
		return itoa(val)
	case int32:
		return itoa(int(val))
	case int64:
		return itoa64(val)
	case uint:
		return utoa(uint64(val))
	case uint32:
		return utoa(uint64(val))
	case uint64:
		return utoa(val)
	default:
		return ""
	}
}
