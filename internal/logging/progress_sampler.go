package logging

import "strings"

// ProgressSampler thins per-frame progress into one log line per bucket.
// Progress is a job fraction in [0, 1]; bucketPercent is the bucket width in
// percent.
type ProgressSampler struct {
	bucketPercent float64
	stage         string
	bucket        int
}

// NewProgressSampler returns a sampler with buckets of bucketPercent (5 when
// not positive).
func NewProgressSampler(bucketPercent float64) *ProgressSampler {
	if bucketPercent <= 0 {
		bucketPercent = 5
	}
	return &ProgressSampler{bucketPercent: bucketPercent, bucket: -1}
}

// ShouldLog reports whether fraction in stage starts a new bucket. A stage
// change always logs and restarts the buckets. A negative fraction means
// unknown progress and only logs on a stage change. A nil sampler logs
// everything.
func (s *ProgressSampler) ShouldLog(fraction float64, stage string) bool {
	if s == nil {
		return true
	}
	emit := false
	if stage = strings.TrimSpace(stage); stage != "" && stage != s.stage {
		s.stage = stage
		s.bucket = -1
		emit = true
	}
	if fraction < 0 {
		return emit
	}
	bucket := int(min(fraction, 1) * 100 / s.bucketPercent)
	if bucket > s.bucket {
		s.bucket = bucket
		emit = true
	}
	return emit
}
