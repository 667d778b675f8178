package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"feedback360/apperr"
	"feedback360/db"
	"feedback360/models"
)

type stubLibrary struct {
	questions []AssignedQuestion
	err       error
}

func (s stubLibrary) SurveyQuestions(int64) ([]AssignedQuestion, error) {
	return s.questions, s.err
}

func scenarioBlocks(t *testing.T) []Block {
	t.Helper()
	lib := stubLibrary{questions: []AssignedQuestion{
		{QuestionID: 1, Text: "How well does Ana communicate?", Type: models.QUESTION_TYPE_RATING, AnswerFields: `{"min":1,"max":10}`},
		{QuestionID: 2, Optional: true, Text: "What should Ana keep doing?\nBe specific.", Type: models.QUESTION_TYPE_TEXT, AnswerFields: `{"v":1,"minLength":5}`},
	}}
	blocks, err := NewResolver(lib, nil).BuildBlocks(10)
	if err != nil {
		t.Fatalf("BuildBlocks: %v", err)
	}
	return blocks
}

func raw(m map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m))
	for k, v := range m {
		out[k] = json.RawMessage(v)
	}
	return out
}

func TestBuildBlocksOrderAndKinds(t *testing.T) {
	blocks := scenarioBlocks(t)
	if len(blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want 3", len(blocks))
	}
	if _, ok := blocks[0].(ProfileBlock); !ok {
		t.Fatalf("blocks[0] = %T, want ProfileBlock", blocks[0])
	}
	r, ok := blocks[1].(RatingBlock)
	if !ok || r.ID != "q1" || r.Min != 1 || r.Max != 10 || r.Optional {
		t.Fatalf("blocks[1] = %+v", blocks[1])
	}
	tb, ok := blocks[2].(TextBlock)
	if !ok || tb.ID != "q2" || tb.MinLength == nil || *tb.MinLength != 5 || !tb.Optional {
		t.Fatalf("blocks[2] = %+v", blocks[2])
	}
	if tb.Name != "What should Ana keep doing?" {
		t.Fatalf("name = %q, want first line of the prompt", tb.Name)
	}
}

func TestBuildBlocksChoiceBecomesTextAndBadMetadataFallsBack(t *testing.T) {
	lib := stubLibrary{questions: []AssignedQuestion{
		{QuestionID: 4, Text: "Pick one", Type: models.QUESTION_TYPE_CHOICE},
		{QuestionID: 5, Text: "", Type: models.QUESTION_TYPE_RATING, AnswerFields: `{"min":`},
	}}
	blocks, err := NewResolver(lib, nil).BuildBlocks(1)
	if err != nil {
		t.Fatalf("BuildBlocks: %v", err)
	}
	if _, ok := blocks[1].(TextBlock); !ok {
		t.Fatalf("choice question built as %T, want TextBlock", blocks[1])
	}
	r := blocks[2].(RatingBlock)
	if r.Min != DefaultRatingMin || r.Max != DefaultRatingMax {
		t.Fatalf("fallback range = [%d,%d]", r.Min, r.Max)
	}
	if r.Name != "Question 5" {
		t.Fatalf("name = %q, want Question 5", r.Name)
	}
}

func TestBuildBlocksReadsMetadataFieldByField(t *testing.T) {
	cases := []struct {
		name     string
		meta     string
		min, max int
	}{
		{"extra key ignored", `{"min":1,"max":5,"labels":["bad","good"]}`, 1, 5},
		{"mistyped max keeps min", `{"min":2,"max":"lots"}`, 2, DefaultRatingMax},
		{"numeric strings", `{"min":"0","max":"4"}`, 0, 4},
		{"integral float", `{"max":7.0}`, DefaultRatingMin, 7},
		{"min above max", `{"min":9,"max":3}`, DefaultRatingMin, DefaultRatingMax},
		{"not an object", `[1,5]`, DefaultRatingMin, DefaultRatingMax},
		{"unknown version", `{"v":7,"max":6}`, DefaultRatingMin, 6},
	}
	for _, tc := range cases {
		lib := stubLibrary{questions: []AssignedQuestion{
			{QuestionID: 1, Text: "Rate", Type: models.QUESTION_TYPE_RATING, AnswerFields: tc.meta},
		}}
		blocks, err := NewResolver(lib, nil).BuildBlocks(1)
		if err != nil {
			t.Fatalf("%s: BuildBlocks: %v", tc.name, err)
		}
		r := blocks[1].(RatingBlock)
		if r.Min != tc.min || r.Max != tc.max {
			t.Fatalf("%s: range = [%d,%d], want [%d,%d]", tc.name, r.Min, r.Max, tc.min, tc.max)
		}
	}
}

func TestBuildBlocksExtraKeysStillEnforceRange(t *testing.T) {
	lib := stubLibrary{questions: []AssignedQuestion{
		{QuestionID: 1, Text: "Rate", Type: models.QUESTION_TYPE_RATING, AnswerFields: `{"min":1,"max":5,"labels":["bad","good"]}`},
		{QuestionID: 2, Text: "Why", Type: models.QUESTION_TYPE_TEXT, AnswerFields: `{"minLength":-3,"placeholder":"Tell us","hint":true}`},
	}}
	blocks, err := NewResolver(lib, nil).BuildBlocks(1)
	if err != nil {
		t.Fatalf("BuildBlocks: %v", err)
	}

	_, err = Validate(raw(map[string]string{"q1": "7"}), blocks)
	if !apperr.Is(err, apperr.KindValidation) || apperr.FieldOf(err) != "q1" {
		t.Fatalf("7 on a 1..5 rating: err = %v, want validation on q1", err)
	}

	tb := blocks[2].(TextBlock)
	if tb.MinLength != nil {
		t.Fatalf("negative minLength kept: %d", *tb.MinLength)
	}
	if tb.Placeholder == nil || *tb.Placeholder != "Tell us" {
		t.Fatalf("placeholder = %v, want Tell us", tb.Placeholder)
	}
}

func TestBuildBlocksPropagatesLibraryError(t *testing.T) {
	_, err := NewResolver(stubLibrary{err: errors.New("db down")}, nil).BuildBlocks(1)
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestBlockJSONCarriesType(t *testing.T) {
	b, err := json.Marshal(RatingBlock{ID: "q1", Name: "n", Question: "q", Min: 1, Max: 5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if m["type"] != "rating" || m["id"] != "q1" || m["max"] != float64(5) {
		t.Fatalf("json = %s", b)
	}
}

func TestValidateScenario(t *testing.T) {
	blocks := scenarioBlocks(t)

	got, err := Validate(raw(map[string]string{"q1": "7"}), blocks)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got["q1"] != int64(7) {
		t.Fatalf("q1 = %#v, want int64(7)", got["q1"])
	}

	_, err = Validate(raw(map[string]string{"q2": `"ok"`}), blocks)
	if !apperr.Is(err, apperr.KindValidation) || apperr.FieldOf(err) != "q2" {
		t.Fatalf("err = %v, want validation on q2", err)
	}
	if !strings.Contains(err.Error(), "minLength=5") {
		t.Fatalf("message = %q", err.Error())
	}

	got, err = Validate(raw(map[string]string{"q2": `"great job"`}), blocks)
	if err != nil || got["q2"] != "great job" {
		t.Fatalf("got %v, %v", got, err)
	}
}

func TestValidateRejections(t *testing.T) {
	blocks := scenarioBlocks(t)
	cases := []struct {
		name  string
		input map[string]string
		field string
		msg   string
	}{
		{"unknown block", map[string]string{"q99": "1"}, "q99", "Unknown block id: q99"},
		{"required null", map[string]string{"q1": "null"}, "q1", "Block q1 is required"},
		{"float", map[string]string{"q1": "7.0"}, "q1", "must be integer"},
		{"bool", map[string]string{"q1": "true"}, "q1", "must be integer"},
		{"numeric string", map[string]string{"q1": `"7"`}, "q1", "must be integer"},
		{"out of range", map[string]string{"q1": "11"}, "q1", "out of range [1,10]"},
		{"text not string", map[string]string{"q2": "12345"}, "q2", "must be string"},
		{"profile answered", map[string]string{"profile": `"me"`}, "profile", "is not answerable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(raw(tc.input), blocks)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("err = %v, want validation", err)
			}
			if apperr.FieldOf(err) != tc.field || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("err = %v (field %q)", err, apperr.FieldOf(err))
			}
		})
	}
}

func TestValidateOptionalNullAndProfileNullKept(t *testing.T) {
	got, err := Validate(raw(map[string]string{"q2": "null", "profile": "null"}), scenarioBlocks(t))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if v, ok := got["q2"]; !ok || v != nil {
		t.Fatalf("q2 = %v, %v; want explicit nil", v, ok)
	}
}

func TestValidateMinLengthCountsRunes(t *testing.T) {
	if _, err := Validate(raw(map[string]string{"q2": `"ótimo"`}), scenarioBlocks(t)); err != nil {
		t.Fatalf("five-rune text rejected: %v", err)
	}
}

func TestValidateDeterministicOrder(t *testing.T) {
	_, err := Validate(raw(map[string]string{"q1": "0", "q2": "1", "a": "1"}), scenarioBlocks(t))
	if apperr.FieldOf(err) != "a" {
		t.Fatalf("first failure = %q, want a", apperr.FieldOf(err))
	}
}

func TestRequireComplete(t *testing.T) {
	blocks := scenarioBlocks(t)
	if err := RequireComplete(map[string]any{"q2": "great job"}, blocks); apperr.FieldOf(err) != "q1" {
		t.Fatalf("err = %v, want q1 required", err)
	}
	if err := RequireComplete(map[string]any{"q1": int64(3)}, blocks); err != nil {
		t.Fatalf("optional q2 blocked completion: %v", err)
	}
}

func TestParseConstraintsStrict(t *testing.T) {
	c, err := ParseConstraints("")
	if err != nil || c.Min != 1 || c.Max != 10 || c.Version != 1 {
		t.Fatalf("defaults = %+v, %v", c, err)
	}
	bad := []string{
		`{"v":2}`,
		`{"min":5,"max":1}`,
		`{"minLength":-1}`,
		`{"min":1.5}`,
		`{"colour":"red"}`,
		`[1,2]`,
		`{"min":1} {"max":2}`,
	}
	for _, doc := range bad {
		if _, err := ParseConstraints(doc); err == nil {
			t.Fatalf("ParseConstraints(%s) accepted", doc)
		}
	}
	c, err = ParseConstraints(`{"min":0,"max":5,"placeholder":"say hi"}`)
	if err != nil || c.Min != 0 || c.Max != 5 || c.Placeholder == nil || *c.Placeholder != "say hi" {
		t.Fatalf("got %+v, %v", c, err)
	}
}

func TestGormLibraryAddAndList(t *testing.T) {
	conn, err := db.ConnectMemory()
	if err != nil {
		t.Fatalf("ConnectMemory: %v", err)
	}
	defer conn.Close()
	lib := NewGormLibrary(conn)

	_, err = lib.AddQuestion(NewQuestion{Text: "  ", Type: models.QUESTION_TYPE_TEXT})
	if apperr.FieldOf(err) != "question_text" || err.Error() != "question_text is required" {
		t.Fatalf("blank text err = %v, want question_text is required", err)
	}

	if _, err := lib.AddQuestion(NewQuestion{Text: "Rate", Type: models.QUESTION_TYPE_RATING, AnswerFields: `{"min":9,"max":1}`}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("invalid metadata err = %v, want validation", err)
	}

	text, err := lib.AddQuestion(NewQuestion{Text: "Comment", Type: models.QUESTION_TYPE_TEXT, AnswerFields: `{"minLength":3}`})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	rating, err := lib.AddQuestion(NewQuestion{Text: "Rate", Type: models.QUESTION_TYPE_RATING})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}
	if rating.SchemaVersion != CurrentVersion {
		t.Fatalf("schema_version = %d", rating.SchemaVersion)
	}

	// assigned out of order; listing must come back by question id
	conn.Create(&models.SurveyQuestion{SurveyID: 7, QuestionID: rating.ID})
	conn.Create(&models.SurveyQuestion{SurveyID: 7, QuestionID: text.ID, Optional: true})

	got, err := lib.SurveyQuestions(7)
	if err != nil {
		t.Fatalf("SurveyQuestions: %v", err)
	}
	if len(got) != 2 || got[0].QuestionID != text.ID || !got[0].Optional || got[1].Type != models.QUESTION_TYPE_RATING {
		t.Fatalf("got %+v", got)
	}

	found, err := lib.Existing([]int64{text.ID, 999})
	if err != nil || !found[text.ID] || found[999] {
		t.Fatalf("Existing = %v, %v", found, err)
	}
}
