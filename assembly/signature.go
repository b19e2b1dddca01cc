package assembly

// Signature is an optional Authenticode signer summary attached to a Def
// when the PE carries a certificate-table directory entry. It is
// informational-only context: it never influences a diagnostic, keeping the
// system's pure-metadata-analysis non-goal intact.
type Signature struct {
	Issuer            string
	Subject           string
	SignatureAlgorithm string
	Verified          bool
}
