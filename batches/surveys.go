package batches

import (
	"feedback360/models"
	"feedback360/tools"
)

type SurveyFilter struct {
	SubjectID    int64
	RespondentID int64
	Limit        int
	Offset       int
}

type SurveyPerson struct {
	UserID    int64  `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Telegram  string `json:"telegram,omitempty"`
}

type SurveyItem struct {
	SurveyID        string       `json:"surveyId"`
	BatchID         *int64       `json:"batchId"`
	CreatedAtISO    string       `json:"createdAtISO"`
	DeadlineISO     string       `json:"deadlineISO"`
	IsClosed        bool         `json:"isClosed"`
	ReviewType      string       `json:"reviewType"`
	Title           string       `json:"title"`
	Subject         SurveyPerson `json:"subject"`
	Respondent      SurveyPerson `json:"respondent"`
	HasResponse     bool         `json:"hasResponse"`
	ResponseVersion *int64       `json:"responseVersion"`
}

// Surveys lists personal surveys newest first with their response state.
func (t *Tracker) Surveys(f SurveyFilter) ([]SurveyItem, error) {
	q := t.db.Order("created_at desc, id desc").Limit(clampLimit(f.Limit)).Offset(maxInt(f.Offset, 0))
	if f.SubjectID > 0 {
		q = q.Where("subject_id = ?", f.SubjectID)
	}
	if f.RespondentID > 0 {
		q = q.Where("respondent_id = ?", f.RespondentID)
	}
	var surveys []models.Survey
	if err := q.Find(&surveys).Error; err != nil {
		return nil, err
	}
	out := []SurveyItem{}
	if len(surveys) == 0 {
		return out, nil
	}

	surveyIDs := make([]int64, 0, len(surveys))
	personIDs := make([]int64, 0, 2*len(surveys))
	for _, s := range surveys {
		surveyIDs = append(surveyIDs, s.ID)
		personIDs = append(personIDs, s.SubjectID, s.RespondentID)
	}

	var versions []struct {
		SurveyID int64
		Version  int64
	}
	if err := t.db.Table("responses").
		Select("survey_id, max(version) AS version").
		Where("survey_id IN (?)", surveyIDs).
		Group("survey_id").
		Scan(&versions).Error; err != nil {
		return nil, err
	}
	versionOf := make(map[int64]int64, len(versions))
	for _, v := range versions {
		versionOf[v.SurveyID] = v.Version
	}

	var people []models.Person
	if err := t.db.Where("id IN (?)", dedupe(personIDs)).Find(&people).Error; err != nil {
		return nil, err
	}
	personOf := make(map[int64]models.Person, len(people))
	for _, p := range people {
		personOf[p.ID] = p
	}

	now := t.now()
	for _, s := range surveys {
		subj := personOf[s.SubjectID]
		resp := personOf[s.RespondentID]
		item := SurveyItem{
			SurveyID:    models.SurveyRef(s.ID),
			BatchID:     s.BatchID,
			DeadlineISO: tools.ISO(s.Deadline),
			IsClosed:    s.IsClosed(now),
			ReviewType:  s.ReviewType,
			Title:       s.Title,
			Subject:     SurveyPerson{UserID: s.SubjectID, FirstName: subj.FirstName, LastName: subj.LastName},
			Respondent: SurveyPerson{
				UserID: s.RespondentID, FirstName: resp.FirstName, LastName: resp.LastName,
				Email: resp.Email, Telegram: resp.Telegram,
			},
		}
		if s.CreatedAt != nil {
			item.CreatedAtISO = tools.ISO(*s.CreatedAt)
		}
		if v, ok := versionOf[s.ID]; ok {
			v := v
			item.HasResponse = true
			item.ResponseVersion = &v
		}
		out = append(out, item)
	}
	return out, nil
}
