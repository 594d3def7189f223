package classify

// densitySentinel stands in for the chars-per-visual ratio of a document
// with no visual elements at all, so plain text-heavy documents always stay
// on the text path.
const densitySentinel = 9999

// Density returns the chars-per-visual ratio used for office rerouting.
func Density(charCount, visualCount int) float64 {
	if visualCount == 0 {
		return densitySentinel
	}
	return float64(charCount) / float64(visualCount)
}

// ReroutePDF decides whether an office document is rendered to PDF instead
// of extracted as text: either the text is too sparse per visual, or the
// visual count alone crosses the limit. The decision is final for the run;
// nothing downstream second-guesses it.
func ReroutePDF(charCount, visualCount, densityThreshold, visualLimit int) bool {
	if visualCount >= visualLimit {
		return true
	}
	return Density(charCount, visualCount) < float64(densityThreshold)
}
