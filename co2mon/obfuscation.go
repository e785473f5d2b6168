package co2mon

// Magic word the firmware mixes into obfuscated reports.
var magicWord = [8]byte{'H', 't', 'e', 'm', 'p', '9', '9', 'e'}

// decrypt undoes the report obfuscation of older firmware in place:
// un-swap four byte pairs, XOR with the handshake key, rotate the
// whole 64-bit word right by 3 bits, subtract the nibble-swapped
// magic word. Newer firmware sends reports in the clear.
func decrypt(f *Frame, key Table) {
	f[0], f[2] = f[2], f[0]
	f[1], f[4] = f[4], f[1]
	f[3], f[7] = f[7], f[3]
	f[5], f[6] = f[6], f[5]

	for i := range f {
		f[i] ^= key[i]
	}

	tmp := f[7] << 5
	f[7] = f[6]<<5 | f[7]>>3
	f[6] = f[5]<<5 | f[6]>>3
	f[5] = f[4]<<5 | f[5]>>3
	f[4] = f[3]<<5 | f[4]>>3
	f[3] = f[2]<<5 | f[3]>>3
	f[2] = f[1]<<5 | f[2]>>3
	f[1] = f[0]<<5 | f[1]>>3
	f[0] = tmp | f[0]>>3

	for i := range f {
		f[i] -= magicWord[i]<<4 | magicWord[i]>>4
	}
}
