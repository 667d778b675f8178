// Package access resolves survey link tokens to the survey, subject and
// respondent they were minted for.
package access

import (
	"strings"
	"time"

	"feedback360/apperr"
	"feedback360/db"
	"feedback360/models"
	"feedback360/tools"

	"github.com/jinzhu/gorm"
	"go.uber.org/zap"
)

// Access is a resolved, non-revoked link token.
type Access struct {
	Link       models.LinkToken
	Survey     models.Survey
	Subject    models.Person
	Respondent models.Person
}

type Gate struct {
	db         *gorm.DB
	log        *zap.Logger
	now        func() time.Time
	tokenBytes int
}

func NewGate(conn *gorm.DB, log *zap.Logger, tokenBytes int) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{db: conn, log: log, now: time.Now, tokenBytes: tokenBytes}
}

// WithClock replaces the time source.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Resolve looks a raw token up by its hash.
func (g *Gate) Resolve(token string) (Access, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Access{}, apperr.Auth("Missing X-Survey-Token")
	}

	var link models.LinkToken
	err := g.db.Where("token_hash = ? AND revoked = ?", tools.HashLinkToken(token), false).First(&link).Error
	if db.IsNotFound(err) {
		return Access{}, apperr.Auth("Invalid token")
	}
	if err != nil {
		return Access{}, err
	}

	var survey models.Survey
	if err := g.db.First(&survey, link.SurveyID).Error; err != nil {
		if db.IsNotFound(err) {
			return Access{}, apperr.Auth("Invalid token")
		}
		return Access{}, err
	}

	subject, err := g.person(survey.SubjectID)
	if err != nil {
		return Access{}, err
	}
	respondent, err := g.person(link.RespondentID)
	if err != nil {
		return Access{}, err
	}

	return Access{Link: link, Survey: survey, Subject: subject, Respondent: respondent}, nil
}

// person reads the directory; an id the directory no longer knows still
// renders with its id as the name.
func (g *Gate) person(id int64) (models.Person, error) {
	var p models.Person
	err := g.db.First(&p, id).Error
	if db.IsNotFound(err) {
		return models.Person{ID: id}, nil
	}
	return p, err
}

// Touch records the access time. It never fails the caller.
func (g *Gate) Touch(link models.LinkToken) {
	now := g.now().UTC()
	if err := g.db.Model(&models.LinkToken{}).Where("id = ?", link.ID).UpdateColumn("last_access_at", &now).Error; err != nil {
		g.log.Warn("could not update last_access_at", zap.Int64("link_id", link.ID), zap.Error(err))
	}
}

// Authorize rejects a token used against a survey it was not minted for.
func (g *Gate) Authorize(a Access, surveyID int64) error {
	if a.Link.SurveyID != surveyID || a.Survey.ID != surveyID {
		return apperr.Forbidden("Token does not match survey")
	}
	return nil
}

// Mint creates a token for (surveyID, respondentID) inside tx and returns
// the raw value. Only its hash is stored.
func (g *Gate) Mint(tx *gorm.DB, surveyID, respondentID int64) (string, error) {
	token, err := tools.NewLinkToken(g.tokenBytes)
	if err != nil {
		return "", err
	}
	now := g.now().UTC()
	link := models.LinkToken{
		TokenHash:    tools.HashLinkToken(token),
		SurveyID:     surveyID,
		RespondentID: respondentID,
		CreatedAt:    &now,
	}
	if err := tx.Create(&link).Error; err != nil {
		return "", err
	}
	return token, nil
}

// Revoke disables every token of a survey and returns how many changed.
func (g *Gate) Revoke(surveyID int64) (int64, error) {
	res := g.db.Model(&models.LinkToken{}).
		Where("survey_id = ? AND revoked = ?", surveyID, false).
		UpdateColumn("revoked", true)
	if res.Error != nil {
		return 0, res.Error
	}
	g.log.Info("link tokens revoked", zap.Int64("survey_id", surveyID), zap.Int64("count", res.RowsAffected))
	return res.RowsAffected, nil
}
