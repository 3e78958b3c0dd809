package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAudioLocatorsDeduplicatesAcrossRepresentations(t *testing.T) {
	exam := Exam{
		Responses: []LegacyResponse{
			{QuestionID: 1, AudioURL: "https://cdn.test/a.webm"},
			{QuestionID: 2, AudioURL: "https://cdn.test/b.webm"},
		},
		Answers: []ExamAnswer{
			{QuestionID: 1, AudioURL: "https://cdn.test/a.webm"},
			{QuestionID: 3, AudioURL: "https://cdn.test/c.webm"},
			{QuestionID: 4, AudioURL: ""},
		},
	}

	locators := exam.AudioLocators()
	require.Equal(t, []string{
		"https://cdn.test/a.webm",
		"https://cdn.test/b.webm",
		"https://cdn.test/c.webm",
	}, locators)
}

func TestAudioLocatorsEmptyExam(t *testing.T) {
	require.Empty(t, Exam{}.AudioLocators())
}

func TestExamAnswerSnapshotRoundTrip(t *testing.T) {
	question := Question{
		Text: "Describe the table",
		Type: QuestionTypeTable,
		Part: 3,
	}
	question.SetTable(&TableData{
		Topic:   "Bus ridership",
		Columns: []string{"Route", "Riders"},
		Rows:    [][]string{{"12", "480"}},
	})

	var answer ExamAnswer
	answer.SetSnapshot(SnapshotOf(question))

	snapshot := answer.Snapshot()
	require.Equal(t, question.Text, snapshot.Text)
	require.Equal(t, QuestionTypeTable, snapshot.Type)
	require.Equal(t, 3, snapshot.Part)
	require.NotNil(t, snapshot.TableData)
	require.Equal(t, "Bus ridership", snapshot.TableData.Topic)
	require.Equal(t, [][]string{{"12", "480"}}, snapshot.TableData.Rows)
}

func TestExamAnswerSnapshotEmptyColumn(t *testing.T) {
	var answer ExamAnswer
	require.Equal(t, QuestionSnapshot{}, answer.Snapshot())
}

func TestUserAppendExamIDDeduplicates(t *testing.T) {
	var user User
	user.AppendExamID(7)
	user.AppendExamID(9)
	user.AppendExamID(7)

	require.Equal(t, []uint{7, 9}, user.ExamIDs())
}
