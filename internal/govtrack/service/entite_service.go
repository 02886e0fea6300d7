package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bouramah/GovTrack-sub003/internal/govtrack/entity"
	"github.com/bouramah/GovTrack-sub003/internal/govtrack/repository"
	"gorm.io/gorm"
)

// EntiteService gestion de la structure organisationnelle
type EntiteService struct {
	entiteRepo *repository.EntiteRepository
	typeRepo   *repository.TypeEntiteRepository
	posteRepo  *repository.PosteRepository
	userRepo   *repository.UserRepository
	audit      *AuditService
}

// NewEntiteService crée le service des entités
func NewEntiteService(entiteRepo *repository.EntiteRepository, typeRepo *repository.TypeEntiteRepository, posteRepo *repository.PosteRepository, userRepo *repository.UserRepository, audit *AuditService) *EntiteService {
	return &EntiteService{
		entiteRepo: entiteRepo,
		typeRepo:   typeRepo,
		posteRepo:  posteRepo,
		userRepo:   userRepo,
		audit:      audit,
	}
}

// EntiteInput données de création ou mise à jour d'une entité
type EntiteInput struct {
	Nom          string  `json:"nom" binding:"required"`
	Description  string  `json:"description"`
	TypeEntiteID string  `json:"type_entite_id" binding:"required"`
	ParentID     *string `json:"parent_id"`
}

// CreateEntite crée une entité rattachée à un type et un parent optionnel
func (s *EntiteService) CreateEntite(ctx context.Context, input EntiteInput) (*entity.Entite, error) {
	if _, err := s.typeRepo.FindByID(ctx, input.TypeEntiteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("type_entite_id", "type d'entité inconnu")
		}
		return nil, err
	}
	if input.ParentID != nil {
		if _, err := s.entiteRepo.FindByID(ctx, *input.ParentID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, NewValidationError("parent_id", "entité parente inconnue")
			}
			return nil, err
		}
	}

	now := time.Now()
	ent := &entity.Entite{
		ID:           generateID(),
		Nom:          input.Nom,
		Description:  input.Description,
		TypeEntiteID: input.TypeEntiteID,
		ParentID:     input.ParentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.entiteRepo.Create(ctx, ent); err != nil {
		return nil, err
	}
	return ent, nil
}

// UpdateEntite met à jour une entité. Le nouveau parent ne peut être ni
// l'entité elle-même ni l'un de ses descendants.
func (s *EntiteService) UpdateEntite(ctx context.Context, id string, input EntiteInput) (*entity.Entite, error) {
	ent, err := s.entiteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.typeRepo.FindByID(ctx, input.TypeEntiteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("type_entite_id", "type d'entité inconnu")
		}
		return nil, err
	}

	if input.ParentID != nil {
		if *input.ParentID == id {
			return nil, NewValidationError("parent_id", "une entité ne peut être son propre parent")
		}
		cycle, err := s.wouldCycle(ctx, id, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if cycle {
			return nil, NewValidationError("parent_id", "le parent choisi est un descendant de l'entité")
		}
	}

	ent.Nom = input.Nom
	ent.Description = input.Description
	ent.TypeEntiteID = input.TypeEntiteID
	ent.ParentID = input.ParentID
	ent.UpdatedAt = time.Now()

	if err := s.entiteRepo.Update(ctx, ent); err != nil {
		return nil, err
	}
	return ent, nil
}

// wouldCycle vrai si candidateParentID est id ou un descendant de id,
// en remontant la chaîne des parents depuis le candidat
func (s *EntiteService) wouldCycle(ctx context.Context, id, candidateParentID string) (bool, error) {
	current := candidateParentID
	// garde-fou contre une chaîne corrompue
	for depth := 0; depth < 100; depth++ {
		if current == id {
			return true, nil
		}
		ent, err := s.entiteRepo.FindByID(ctx, current)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return false, NewValidationError("parent_id", "entité parente inconnue")
			}
			return false, err
		}
		if ent.ParentID == nil {
			return false, nil
		}
		current = *ent.ParentID
	}
	return true, nil
}

// GetEntite retourne une entité avec son chef en cours
func (s *EntiteService) GetEntite(ctx context.Context, id string) (*entity.Entite, error) {
	return s.entiteRepo.FindByID(ctx, id)
}

// ListEntites liste paginée des entités
func (s *EntiteService) ListEntites(ctx context.Context, page, pageSize int, filters map[string]interface{}) ([]entity.Entite, int64, error) {
	return s.entiteRepo.List(ctx, page, pageSize, filters)
}

// DeleteEntite supprime une entité sans enfants, sans affectations actives
// et sans projets rattachés
func (s *EntiteService) DeleteEntite(ctx context.Context, id string, meta RequestMeta, reason string) error {
	ent, err := s.entiteRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	children, err := s.entiteRepo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return &ConflictError{Message: fmt.Sprintf("l'entité a %d entité(s) fille(s)", children)}
	}
	affectations, err := s.entiteRepo.ListAffectationsActives(ctx, id)
	if err != nil {
		return err
	}
	if len(affectations) > 0 {
		return &ConflictError{Message: fmt.Sprintf("l'entité a %d affectation(s) active(s)", len(affectations))}
	}
	projets, err := s.entiteRepo.CountProjets(ctx, id)
	if err != nil {
		return err
	}
	if projets > 0 {
		return &ConflictError{Message: fmt.Sprintf("l'entité porte %d projet(s)", projets)}
	}

	if err := s.entiteRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.Entite{}.TableName(), id, entity.JSONB{
		"nom":            ent.Nom,
		"type_entite_id": ent.TypeEntiteID,
	}, reason)
	return nil
}

// AffecterChefInput nomination d'un chef d'entité
type AffecterChefInput struct {
	UserID                  string    `json:"user_id" binding:"required"`
	DateDebut               time.Time `json:"date_debut"`
	TerminerMandatPrecedent bool      `json:"terminer_mandat_precedent"`
}

// AffecterChef nomme un chef d'entité. S'il existe un mandat en cours et
// que terminer_mandat_precedent n'est pas demandé, l'appel échoue en
// retournant le chef actuel. Sinon l'ancien mandat est clos la veille du
// nouveau. Tout se joue dans une transaction, mandat courant verrouillé.
func (s *EntiteService) AffecterChef(ctx context.Context, entiteID string, input AffecterChefInput) (*entity.EntiteChefHistory, error) {
	if _, err := s.entiteRepo.FindByID(ctx, entiteID); err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("user_id", "utilisateur inconnu")
		}
		return nil, err
	}

	dateDebut := input.DateDebut
	if dateDebut.IsZero() {
		dateDebut = time.Now().Truncate(24 * time.Hour)
	}

	var mandat *entity.EntiteChefHistory
	err = s.entiteRepo.Transaction(ctx, func(tx *gorm.DB) error {
		actif, err := s.entiteRepo.FindChefActif(ctx, tx, entiteID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if actif != nil {
			if actif.UserID == input.UserID && actif.DateFin == nil {
				return &ConflictError{Message: "cet utilisateur est déjà chef de l'entité", Data: actif}
			}
			if !input.TerminerMandatPrecedent {
				return &ConflictError{Message: "un chef est déjà en poste", Data: actif}
			}
			dateFin := dateDebut.AddDate(0, 0, -1)
			if err := s.entiteRepo.CloseChefMandat(ctx, tx, actif.ID, dateFin); err != nil {
				return err
			}
		}

		mandat = &entity.EntiteChefHistory{
			ID:        generateID(),
			EntiteID:  entiteID,
			UserID:    input.UserID,
			DateDebut: dateDebut,
			CreatedAt: time.Now(),
		}
		return s.entiteRepo.CreateChefMandat(ctx, tx, mandat)
	})
	if err != nil {
		return nil, err
	}

	mandat.User = user
	return mandat, nil
}

// TerminerMandatChef clôture le mandat de chef en cours
func (s *EntiteService) TerminerMandatChef(ctx context.Context, entiteID string, dateFin time.Time) error {
	if _, err := s.entiteRepo.FindByID(ctx, entiteID); err != nil {
		return err
	}
	if dateFin.IsZero() {
		dateFin = time.Now().Truncate(24 * time.Hour)
	}
	return s.entiteRepo.Transaction(ctx, func(tx *gorm.DB) error {
		actif, err := s.entiteRepo.FindChefActif(ctx, tx, entiteID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &ConflictError{Message: "aucun mandat de chef en cours"}
			}
			return err
		}
		return s.entiteRepo.CloseChefMandat(ctx, tx, actif.ID, dateFin)
	})
}

// GetChefActif retourne le mandat de chef en cours, ErrNotFound sinon
func (s *EntiteService) GetChefActif(ctx context.Context, entiteID string) (*entity.EntiteChefHistory, error) {
	return s.entiteRepo.FindChefActif(ctx, nil, entiteID)
}

// ListChefHistory historique des mandats de chef
func (s *EntiteService) ListChefHistory(ctx context.Context, entiteID string) ([]entity.EntiteChefHistory, error) {
	if _, err := s.entiteRepo.FindByID(ctx, entiteID); err != nil {
		return nil, err
	}
	return s.entiteRepo.ListChefHistory(ctx, entiteID)
}

// AffecterUtilisateurInput affectation d'un utilisateur à un poste
type AffecterUtilisateurInput struct {
	UserID                        string    `json:"user_id" binding:"required"`
	PosteID                       string    `json:"poste_id" binding:"required"`
	DateDebut                     time.Time `json:"date_debut"`
	TerminerAffectationPrecedente bool      `json:"terminer_affectation_precedente"`
}

// AffecterUtilisateur affecte un utilisateur à un poste de l'entité. Un
// utilisateur n'a qu'une affectation active, la précédente doit être
// explicitement clôturée.
func (s *EntiteService) AffecterUtilisateur(ctx context.Context, entiteID string, input AffecterUtilisateurInput) (*entity.UtilisateurEntiteHistory, error) {
	if _, err := s.entiteRepo.FindByID(ctx, entiteID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByID(ctx, input.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("user_id", "utilisateur inconnu")
		}
		return nil, err
	}
	if _, err := s.posteRepo.FindByID(ctx, input.PosteID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("poste_id", "poste inconnu")
		}
		return nil, err
	}

	dateDebut := input.DateDebut
	if dateDebut.IsZero() {
		dateDebut = time.Now().Truncate(24 * time.Hour)
	}

	var affectation *entity.UtilisateurEntiteHistory
	err := s.entiteRepo.Transaction(ctx, func(tx *gorm.DB) error {
		active, err := s.entiteRepo.FindAffectationActive(ctx, tx, input.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if active != nil {
			if !input.TerminerAffectationPrecedente {
				return &ConflictError{Message: "l'utilisateur a déjà une affectation active", Data: active}
			}
			dateFin := dateDebut.AddDate(0, 0, -1)
			if err := s.entiteRepo.CloseAffectation(ctx, tx, active.ID, dateFin); err != nil {
				return err
			}
		}

		affectation = &entity.UtilisateurEntiteHistory{
			ID:        generateID(),
			UserID:    input.UserID,
			PosteID:   input.PosteID,
			EntiteID:  entiteID,
			Statut:    true,
			DateDebut: dateDebut,
			CreatedAt: time.Now(),
		}
		return s.entiteRepo.CreateAffectation(ctx, tx, affectation)
	})
	if err != nil {
		return nil, err
	}
	return affectation, nil
}

// TerminerAffectation clôture l'affectation active d'un utilisateur dans l'entité
func (s *EntiteService) TerminerAffectation(ctx context.Context, entiteID, userID string, dateFin time.Time) error {
	if _, err := s.entiteRepo.FindByID(ctx, entiteID); err != nil {
		return err
	}
	if dateFin.IsZero() {
		dateFin = time.Now().Truncate(24 * time.Hour)
	}
	return s.entiteRepo.Transaction(ctx, func(tx *gorm.DB) error {
		active, err := s.entiteRepo.FindAffectationActive(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &ConflictError{Message: "aucune affectation active pour cet utilisateur"}
			}
			return err
		}
		if active.EntiteID != entiteID {
			return &ConflictError{Message: "l'affectation active relève d'une autre entité"}
		}
		return s.entiteRepo.CloseAffectation(ctx, tx, active.ID, dateFin)
	})
}

// ListAffectations affectations actives de l'entité
func (s *EntiteService) ListAffectations(ctx context.Context, entiteID string) ([]entity.UtilisateurEntiteHistory, error) {
	if _, err := s.entiteRepo.FindByID(ctx, entiteID); err != nil {
		return nil, err
	}
	return s.entiteRepo.ListAffectationsActives(ctx, entiteID)
}

// ListAffectationsUtilisateur historique des affectations d'un utilisateur
func (s *EntiteService) ListAffectationsUtilisateur(ctx context.Context, userID string) ([]entity.UtilisateurEntiteHistory, error) {
	return s.entiteRepo.ListAffectationsByUser(ctx, userID)
}

// Hierarchie ascendance et descendance d'une entité
type Hierarchie struct {
	Entite      *entity.Entite  `json:"entite"`
	Ancetres    []entity.Entite `json:"ancetres"`
	Descendants []entity.Entite `json:"descendants"`
}

// GetHierarchie matérialise la chaîne des ancêtres, de la racine au parent
// direct, et tous les descendants de l'entité
func (s *EntiteService) GetHierarchie(ctx context.Context, id string) (*Hierarchie, error) {
	ent, err := s.entiteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	all, err := s.entiteRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*entity.Entite, len(all))
	children := make(map[string][]entity.Entite, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
		if all[i].ParentID != nil {
			children[*all[i].ParentID] = append(children[*all[i].ParentID], all[i])
		}
	}

	var ancetres []entity.Entite
	current := ent.ParentID
	for current != nil {
		parent, ok := byID[*current]
		if !ok {
			break
		}
		ancetres = append([]entity.Entite{*parent}, ancetres...)
		current = parent.ParentID
	}

	var descendants []entity.Entite
	queue := []string{id}
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		for _, child := range children[head] {
			descendants = append(descendants, child)
			queue = append(queue, child.ID)
		}
	}

	return &Hierarchie{Entite: ent, Ancetres: ancetres, Descendants: descendants}, nil
}

// OrganigrammeNode noeud de l'organigramme
type OrganigrammeNode struct {
	Entite   entity.Entite      `json:"entite"`
	Chef     *entity.User       `json:"chef,omitempty"`
	Effectif int                `json:"effectif"`
	Enfants  []OrganigrammeNode `json:"enfants"`
}

// GetOrganigramme rend la forêt complète avec chef et effectif par entité
func (s *EntiteService) GetOrganigramme(ctx context.Context) ([]OrganigrammeNode, error) {
	all, err := s.entiteRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]entity.Entite)
	var roots []entity.Entite
	for _, ent := range all {
		if ent.ParentID == nil {
			roots = append(roots, ent)
		} else {
			children[*ent.ParentID] = append(children[*ent.ParentID], ent)
		}
	}

	var build func(ent entity.Entite) (OrganigrammeNode, error)
	build = func(ent entity.Entite) (OrganigrammeNode, error) {
		node := OrganigrammeNode{Entite: ent, Enfants: []OrganigrammeNode{}}

		if chef, err := s.entiteRepo.FindChefActif(ctx, nil, ent.ID); err == nil {
			if user, err := s.userRepo.FindByID(ctx, chef.UserID); err == nil {
				node.Chef = user
			}
		} else if !errors.Is(err, repository.ErrNotFound) {
			return node, err
		}

		affectations, err := s.entiteRepo.ListAffectationsActives(ctx, ent.ID)
		if err != nil {
			return node, err
		}
		node.Effectif = len(affectations)

		for _, child := range children[ent.ID] {
			childNode, err := build(child)
			if err != nil {
				return node, err
			}
			node.Enfants = append(node.Enfants, childNode)
		}
		return node, nil
	}

	nodes := make([]OrganigrammeNode, 0, len(roots))
	for _, root := range roots {
		node, err := build(root)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// TypeEntiteInput données de création ou mise à jour d'un type d'entité
type TypeEntiteInput struct {
	Nom         string `json:"nom" binding:"required"`
	Description string `json:"description"`
}

// CreateTypeEntite crée un type d'entité, nom unique
func (s *EntiteService) CreateTypeEntite(ctx context.Context, input TypeEntiteInput) (*entity.TypeEntite, error) {
	count, err := s.typeRepo.CountByNom(ctx, input.Nom, "")
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf("le type %s existe déjà", input.Nom)}
	}

	now := time.Now()
	typeEntite := &entity.TypeEntite{
		ID:          generateID(),
		Nom:         input.Nom,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.typeRepo.Create(ctx, typeEntite); err != nil {
		return nil, err
	}
	return typeEntite, nil
}

// UpdateTypeEntite met à jour un type d'entité
func (s *EntiteService) UpdateTypeEntite(ctx context.Context, id string, input TypeEntiteInput) (*entity.TypeEntite, error) {
	typeEntite, err := s.typeRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.typeRepo.CountByNom(ctx, input.Nom, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &ConflictError{Message: fmt.Sprintf("le type %s existe déjà", input.Nom)}
	}

	typeEntite.Nom = input.Nom
	typeEntite.Description = input.Description
	typeEntite.UpdatedAt = time.Now()

	if err := s.typeRepo.Update(ctx, typeEntite); err != nil {
		return nil, err
	}
	return typeEntite, nil
}

// DeleteTypeEntite supprime un type sans entité rattachée
func (s *EntiteService) DeleteTypeEntite(ctx context.Context, id string, meta RequestMeta, reason string) error {
	typeEntite, err := s.typeRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.typeRepo.CountEntites(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &ConflictError{Message: fmt.Sprintf("%d entité(s) utilisent ce type", count)}
	}
	if err := s.typeRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.TypeEntite{}.TableName(), id, entity.JSONB{
		"nom": typeEntite.Nom,
	}, reason)
	return nil
}

// ListTypeEntites liste tous les types d'entité
func (s *EntiteService) ListTypeEntites(ctx context.Context) ([]entity.TypeEntite, error) {
	return s.typeRepo.List(ctx)
}

// GetTypeEntite retourne un type d'entité
func (s *EntiteService) GetTypeEntite(ctx context.Context, id string) (*entity.TypeEntite, error) {
	return s.typeRepo.FindByID(ctx, id)
}

// PosteInput données de création ou mise à jour d'un poste
type PosteInput struct {
	Nom         string `json:"nom" binding:"required"`
	Description string `json:"description"`
}

// CreatePoste crée un poste
func (s *EntiteService) CreatePoste(ctx context.Context, input PosteInput) (*entity.Poste, error) {
	now := time.Now()
	poste := &entity.Poste{
		ID:          generateID(),
		Nom:         input.Nom,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.posteRepo.Create(ctx, poste); err != nil {
		return nil, err
	}
	return poste, nil
}

// UpdatePoste met à jour un poste
func (s *EntiteService) UpdatePoste(ctx context.Context, id string, input PosteInput) (*entity.Poste, error) {
	poste, err := s.posteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	poste.Nom = input.Nom
	poste.Description = input.Description
	poste.UpdatedAt = time.Now()

	if err := s.posteRepo.Update(ctx, poste); err != nil {
		return nil, err
	}
	return poste, nil
}

// DeletePoste supprime un poste sans affectation active
func (s *EntiteService) DeletePoste(ctx context.Context, id string, meta RequestMeta, reason string) error {
	poste, err := s.posteRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := s.posteRepo.CountAffectations(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return &ConflictError{Message: fmt.Sprintf("%d affectation(s) active(s) utilisent ce poste", count)}
	}
	if err := s.posteRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(meta, entity.AuditActionDelete, entity.Poste{}.TableName(), id, entity.JSONB{
		"nom": poste.Nom,
	}, reason)
	return nil
}

// ListPostes liste tous les postes
func (s *EntiteService) ListPostes(ctx context.Context) ([]entity.Poste, error) {
	return s.posteRepo.List(ctx)
}

// GetPoste retourne un poste
func (s *EntiteService) GetPoste(ctx context.Context, id string) (*entity.Poste, error) {
	return s.posteRepo.FindByID(ctx, id)
}
