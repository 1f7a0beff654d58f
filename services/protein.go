package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// KeyMode bestimmt, wie streng ein Protein-Schlüssel vor dem Request geprüft wird.
type KeyMode string

const (
	KeyModeAny    KeyMode = "any"    // nur nicht leer
	KeyModePDB    KeyMode = "pdb"    // genau 4 alphanumerische Zeichen
	KeyModeStrict KeyMode = "strict" // Aminosäuresequenz oder UniProt/PDB-ID
)

var (
	uniprotRegex = regexp.MustCompile(`^[A-Z][0-9][A-Z0-9]{3}[0-9]$`)
	pdbRegex     = regexp.MustCompile(`^[0-9][A-Z0-9]{3}$`)
	pdbLikeRegex = regexp.MustCompile(`^[A-Za-z0-9]{4}$`)
)

// die 20 Standard-Aminosäuren im Ein-Buchstaben-Code
const aminoAcids = "ARNDCQEGHILKMFPSTWYV"

// NormalizeProteinInput bereinigt eingefügten Text: NFKC (z.B. Vollbreiten-Zeichen),
// Whitespace entfernt, Großbuchstaben.
func NormalizeProteinInput(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

// ValidateProteinSequence prüft, ob nur gültige Aminosäure-Codes enthalten sind.
func ValidateProteinSequence(sequence string) bool {
	seq := NormalizeProteinInput(sequence)
	if seq == "" {
		return false
	}
	for _, r := range seq {
		if !strings.ContainsRune(aminoAcids, r) {
			return false
		}
	}
	return true
}

// ValidateProteinIdentifier erkennt UniProt- und PDB-Identifier.
func ValidateProteinIdentifier(identifier string) bool {
	return uniprotRegex.MatchString(identifier) || pdbRegex.MatchString(identifier)
}

// IsPDBID prüft auf genau 4 alphanumerische Zeichen.
func IsPDBID(key string) bool {
	return pdbLikeRegex.MatchString(key)
}

// ValidateProteinKey prüft einen Schlüssel vor jedem Netzwerkaufruf und gibt die bereinigte Form zurück.
func ValidateProteinKey(key string, mode KeyMode) (string, error) {
	trimmed := strings.TrimSpace(norm.NFKC.String(key))
	if trimmed == "" {
		return "", InvalidInputf("Bitte eine Proteinsequenz oder einen Identifier eingeben")
	}
	switch mode {
	case KeyModePDB:
		if !IsPDBID(trimmed) {
			return "", InvalidInputf("PDB-ID muss aus genau 4 alphanumerischen Zeichen bestehen: %q", trimmed)
		}
		return strings.ToUpper(trimmed), nil
	case KeyModeStrict:
		upper := strings.ToUpper(trimmed)
		if ValidateProteinIdentifier(upper) {
			return upper, nil
		}
		if ValidateProteinSequence(trimmed) {
			return NormalizeProteinInput(trimmed), nil
		}
		return "", InvalidInputf("weder gültige Sequenz noch UniProt/PDB-ID: %q", trimmed)
	}
	return trimmed, nil
}
