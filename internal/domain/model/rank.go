package model

// RankSample feeds one confirmed alert into the incident severity ranking.
// Samples are scored asynchronously; the ranking lags alert creation by the
// queue depth.
type RankSample struct {
	AnalysisID string     `json:"analysis_id"`
	AlertID    string     `json:"alert_id"`
	Threat     ThreatType `json:"threat"`
	Confidence float64    `json:"confidence"`
	VideoTime  float64    `json:"video_timestamp"`
}
