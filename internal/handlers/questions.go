package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/qa-forum/backend/internal/models"
)

type QuestionHandler struct {
	db     *gorm.DB
	awards Awarder
}

func NewQuestionHandler(db *gorm.DB, awards Awarder) *QuestionHandler {
	return &QuestionHandler{db: db, awards: awards}
}

// answerCounts returns the number of answers per question id.
func (h *QuestionHandler) answerCounts(ids []int) (map[int]int, error) {
	counts := make(map[int]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	var rows []struct {
		QuestionID int
		Count      int
	}
	err := h.db.Model(&models.Answer{}).
		Select("question_id, COUNT(*) AS count").
		Where("question_id IN ?", ids).
		Group("question_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.QuestionID] = r.Count
	}
	return counts, nil
}

// GetQuestions lists questions newest first.
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	limit, offset := pagination(c)

	query := h.db.Preload("Author").Preload("Tags").Order("created_at desc").Limit(limit).Offset(offset)
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		query = query.Where("id IN (?)", h.db.Table("question_tags").
			Select("question_tags.question_id").
			Joins("JOIN tags ON tags.id = question_tags.tag_id").
			Where("tags.name = ?", strings.ToLower(tag)))
	}

	var questions []models.Question
	if err := query.Find(&questions).Error; err != nil {
		internalError(c, "Failed to fetch questions", err)
		return
	}

	ids := make([]int, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	counts, err := h.answerCounts(ids)
	if err != nil {
		internalError(c, "Failed to fetch questions", err)
		return
	}

	responses := make([]gin.H, 0, len(questions))
	for _, q := range questions {
		responses = append(responses, gin.H{
			"id":           q.ID,
			"title":        q.Title,
			"content":      q.Content,
			"author":       q.Author,
			"rating":       q.Rating,
			"tags":         q.Tags,
			"answer_count": counts[q.ID],
			"created_at":   q.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, responses)
}

// GetQuestion returns a question with its answers, best rated first.
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var question models.Question
	err := h.db.Preload("Author").
		Preload("Tags").
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("rating desc, created_at asc")
		}).
		Preload("Answers.Author").
		Take(&question, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}
	if err != nil {
		internalError(c, "Failed to fetch question", err)
		return
	}

	c.JSON(http.StatusOK, question)
}

// normalizeTags lowercases, trims and dedupes tag names, keeping order.
func normalizeTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// CreateQuestion creates a question and any tags it names.
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var input models.CreateQuestionRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question := models.Question{
		Title:    strings.TrimSpace(input.Title),
		Content:  input.Content,
		AuthorID: userID,
	}

	var isFirst bool
	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, name := range normalizeTags(input.Tags) {
			tag := models.Tag{Name: name}
			if err := tx.Where(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
				return err
			}
			question.Tags = append(question.Tags, tag)
		}
		if err := tx.Omit("Author").Create(&question).Error; err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.Question{}).Where("author_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		isFirst = count == 1
		return nil
	})
	if err != nil {
		internalError(c, "Failed to create question", err)
		return
	}

	if isFirst {
		award(c, h.awards, userID, models.AchievementFirstQuestion)
	}

	reload(c, h.db, &question, question.ID, "Author", "Tags")
	c.JSON(http.StatusCreated, question)
}
