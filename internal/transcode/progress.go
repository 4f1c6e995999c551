package transcode

// normalizePercent maps a raw encoder progress sample onto [0,100]. Samples
// are signed and noisy; the magnitude is measured against the configured
// reference and the result is always clamped, whatever the encoder emits.
func normalizePercent(raw, reference int64) int {
	if reference <= 0 {
		return 0
	}
	if raw < 0 {
		raw = -raw
	}
	percent := int((raw*100 + reference/2) / reference)
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
