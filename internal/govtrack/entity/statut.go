package entity

// Statuts du workflow (projets et taches)
const (
	StatutAFaire           = "a_faire"
	StatutEnCours          = "en_cours"
	StatutDemandeDeCloture = "demande_de_cloture"
	StatutTermine          = "termine"
	StatutBloque           = "bloque"
)

// statutTransitions is the closed transition table shared by projects and
// tasks. termine is terminal; bloque is reachable from every non-terminal
// state and resumes into a_faire or en_cours.
var statutTransitions = map[string][]string{
	StatutAFaire:           {StatutEnCours, StatutBloque},
	StatutEnCours:          {StatutAFaire, StatutDemandeDeCloture, StatutBloque},
	StatutDemandeDeCloture: {StatutEnCours, StatutTermine, StatutBloque},
	StatutBloque:           {StatutAFaire, StatutEnCours},
	StatutTermine:          {},
}

// IsValidStatut reports whether s is a known workflow status.
func IsValidStatut(s string) bool {
	_, ok := statutTransitions[s]
	return ok
}

// CanTransition reports whether from → to is an allowed transition.
// A same-status call is not a transition (the service layer treats it as a
// comment update) and returns false here.
func CanTransition(from, to string) bool {
	for _, next := range statutTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from the given one.
func AllowedTransitions(from string) []string {
	return statutTransitions[from]
}

// Types de document acceptés pour les pièces jointes
const (
	TypeDocumentRapport        = "rapport"
	TypeDocumentJustificatif   = "justificatif"
	TypeDocumentCompteRendu    = "compte_rendu"
	TypeDocumentNote           = "note"
	TypeDocumentCorrespondance = "correspondance"
	TypeDocumentAutre          = "autre"
)

var typesDocument = []string{
	TypeDocumentRapport,
	TypeDocumentJustificatif,
	TypeDocumentCompteRendu,
	TypeDocumentNote,
	TypeDocumentCorrespondance,
	TypeDocumentAutre,
}

// IsValidTypeDocument reports whether t is a whitelisted document type.
func IsValidTypeDocument(t string) bool {
	for _, v := range typesDocument {
		if v == t {
			return true
		}
	}
	return false
}
