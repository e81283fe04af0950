package webos

// Manifest is the application manifest sent with the register request.
// The TV shows AppName in the pairing prompt and grants Permissions.
type Manifest struct {
	ManifestVersion   int               `json:"manifestVersion"`
	AppVersion        string            `json:"appVersion"`
	AppID             string            `json:"appId"`
	VendorID          string            `json:"vendorId"`
	LocalizedAppNames map[string]string `json:"localizedAppNames"`
	Permissions       []string          `json:"permissions"`
}

// DefaultManifest requests the audio permissions lgtvd needs.
func DefaultManifest() Manifest {
	return Manifest{
		ManifestVersion: 1,
		AppVersion:      "1.0",
		AppID:           "com.teslashibe.lgtvd",
		VendorID:        "com.teslashibe",
		LocalizedAppNames: map[string]string{
			"": "lgtvd",
		},
		Permissions: []string{
			"CONTROL_AUDIO",
			"READ_CURRENT_CHANNEL",
			"READ_RUNNING_APPS",
			"CONTROL_POWER",
		},
	}
}
