package lotledger

// Decode validates and decodes archive bytes into a Ledger.
//
// The bytes are either a ZIP container holding PayloadEntry, or the payload
// entry itself. Errors are *FormatError when the bytes cannot be decoded and
// *ValidationError or *ArithmeticError when the content is inconsistent.
func Decode(data []byte) (*Ledger, error) {
	raw, err := DecodeRaw(data)
	if err != nil {
		return nil, err
	}
	return Build(raw)
}
