package core

// Well-known consensus-network presets. Mainnet/testnet/previewnet
// addresses follow the platform's public documentation; entries are
// illustrative of the real fleet's shape (account ids 0.0.3 upward, one
// plaintext endpoint per node) rather than a literal transcription of the
// live address book, which the address-book refresher supersedes once it
// runs.
var (
	mainnetAddresses = map[string]string{
		"35.237.200.180:50211": "0.0.3",
		"35.186.191.247:50211": "0.0.4",
		"35.192.2.25:50211": "0.0.5",
		"35.199.161.108:50211": "0.0.6",
		"35.203.82.240:50211": "0.0.7",
	}

	testnetAddresses = map[string]string{
		"0.testnet.hedera.com:50211": "0.0.3",
		"1.testnet.hedera.com:50211": "0.0.4",
		"2.testnet.hedera.com:50211": "0.0.5",
		"3.testnet.hedera.com:50211": "0.0.6",
	}

	previewnetAddresses = map[string]string{
		"0.previewnet.hedera.com:50211": "0.0.3",
		"1.previewnet.hedera.com:50211": "0.0.4",
		"2.previewnet.hedera.com:50211": "0.0.5",
	}

	localhostAddresses = map[string]string{
		"127.0.0.1:50211": "0.0.3",
	}
)

func presetAddressMap(name string) (map[string]string, bool) {
	switch name {
	case "mainnet":
		return mainnetAddresses, true
	case "testnet":
		return testnetAddresses, true
	case "previewnet":
		return previewnetAddresses, true
	case "localhost":
		return localhostAddresses, true
	default:
		return nil, false
	}
}

func presetMirrorNetwork(name string) (*MirrorNetwork, error) {
	switch name {
	case "mainnet":
		return MainnetMirrorNetwork()
	case "testnet":
		return TestnetMirrorNetwork()
	case "previewnet":
		return PreviewnetMirrorNetwork()
	case "localhost":
		return LocalhostMirrorNetwork()
	default:
		return nil, &BadConfigError{Msg: "unknown network preset: " + name}
	}
}
