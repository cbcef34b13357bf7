package model

import "time"

// CertificateStatus is derived from the expiry date, never stored.
type CertificateStatus string

const (
	CertValid        CertificateStatus = "valid"
	CertExpiringSoon CertificateStatus = "expiring_soon"
	CertExpired      CertificateStatus = "expired"
)

// ExpiringSoonWindow is the lead time after which a certificate is reported
// as expiring_soon.
const ExpiringSoonWindow = 7 * 24 * time.Hour

// FitnessCertificate attests a trainset's fitness for revenue service.
// Renewal supersedes the prior certificate of the same type rather than
// deleting it.
type FitnessCertificate struct {
	ID         string    `json:"id"`
	TrainsetID string    `json:"trainset_id"`
	Type       string    `json:"type"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Superseded bool      `json:"superseded"`
}

// ValidAt reports whether the certificate covers the given instant.
func (c FitnessCertificate) ValidAt(now time.Time) bool {
	return !c.Superseded && now.Before(c.ExpiresAt)
}

// ExpiresWithin reports whether a currently valid certificate runs out
// within d.
func (c FitnessCertificate) ExpiresWithin(now time.Time, d time.Duration) bool {
	return c.ValidAt(now) && !now.Add(d).Before(c.ExpiresAt)
}

// StatusAt computes the derived status for the given instant.
func (c FitnessCertificate) StatusAt(now time.Time) CertificateStatus {
	switch {
	case !c.ValidAt(now):
		return CertExpired
	case c.ExpiresWithin(now, ExpiringSoonWindow):
		return CertExpiringSoon
	default:
		return CertValid
	}
}

// BestCertificate returns the certificate with the latest expiry that is
// valid at now. The second return value is false when no certificate covers
// the instant, which planning treats identically to an expired certificate.
func BestCertificate(certs []FitnessCertificate, now time.Time) (FitnessCertificate, bool) {
	var best FitnessCertificate
	found := false
	for _, c := range certs {
		if !c.ValidAt(now) {
			continue
		}
		if !found || c.ExpiresAt.After(best.ExpiresAt) {
			best = c
			found = true
		}
	}
	return best, found
}
