package fm

// FM mixes two sampled channels with a carrier product and scales the result.
func FM(a, b, f1, f2, gain int16, sel bool) (mod, z int32) {
	add := int32(a) + int32(b)
	sub := int32(a) - int32(b)
	if sel {
		mod = (add*461 + ((sub*int32(f2))>>16)*461 + int32(f1)*102) >> 10
	} else {
		mod = add
	}
	z = mod * int32(gain) >> 8
	return mod, z
}
