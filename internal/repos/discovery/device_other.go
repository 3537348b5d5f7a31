//go:build !unix

package discovery

func systemDeviceIdentifier(string) (uint64, error) {
	return 0, errDeviceIdentifierUnsupported
}
