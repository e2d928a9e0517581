package stats

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var ErrStatsNotFound = errors.New("stats not found")

// UserStats is one user's engagement record for one project
type UserStats struct {
	IDProject    int64   `json:"idProject"`
	IDUser       int64   `json:"idUser"`
	IDCategory   int64   `json:"idCategory"`
	View         bool    `json:"view"`
	Like         bool    `json:"like"`
	Dislike      bool    `json:"dislike"`
	Funded       float64 `json:"funded"`
	Collaborator bool    `json:"collaborator"`
}

// Summary aggregates a project's engagement across all users
type Summary struct {
	IDProject int64   `json:"idProject"`
	Views     int64   `json:"views"`
	Likes     int64   `json:"likes"`
	Dislikes  int64   `json:"dislikes"`
	Funded    float64 `json:"funded"`
}

// CategoryViews is the share of total views a category received
type CategoryViews struct {
	IDCategory int64  `json:"idCategory"`
	Percentage string `json:"percentage"`
}

// EngagementUpdate describes a change to a user's project stats.
// Evaluation is "likes" or "dislikes"; the two are mutually exclusive.
type EngagementUpdate struct {
	Evaluation       string
	EvaluationStatus bool
	Fund             float64
	Collaboration    bool
}

// Repository keeps per-user engagement hashes plus per-project and
// per-category counters in Redis. Counters are updated in the same
// pipeline as the hash so summaries stay consistent with the records.
type Repository struct {
	client *redis.Client
}

func NewRepository(client *redis.Client) *Repository {
	return &Repository{client: client}
}

func userStatsKey(projectID, userID int64) string {
	return fmt.Sprintf("project:%d:user:%d", projectID, userID)
}

func projectCounterKey(projectID int64, counter string) string {
	return fmt.Sprintf("project:%d:%s", projectID, counter)
}

func categoryViewsKey(categoryID int64) string {
	return fmt.Sprintf("category:%d:views", categoryID)
}

// categorySetKey indexes which categories have recorded views
const categorySetKey = "stats:categories"

// Get returns one user's stats for a project
func (r *Repository) Get(ctx context.Context, projectID, userID int64) (*UserStats, error) {
	data, err := r.client.HGetAll(ctx, userStatsKey(projectID, userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user stats: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrStatsNotFound
	}

	return parseUserStats(projectID, userID, data), nil
}

// RecordView records the first view of a project by a user. Returns
// false without touching any counter when the user already viewed it.
func (r *Repository) RecordView(ctx context.Context, projectID, userID, categoryID int64) (bool, error) {
	key := userStatsKey(projectID, userID)

	viewed, err := r.client.HGet(ctx, key, "view").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to check existing view: %w", err)
	}
	if viewed == "1" {
		return false, nil
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"view":        "1",
		"id_category": categoryID,
	})
	pipe.Incr(ctx, projectCounterKey(projectID, "views"))
	pipe.Incr(ctx, categoryViewsKey(categoryID))
	pipe.SAdd(ctx, categorySetKey, categoryID)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to record view: %w", err)
	}

	return true, nil
}

// UpdateEngagement applies an evaluation/funding/collaboration change to
// an existing stats record. Likes and dislikes exclude each other;
// funding only ever accumulates.
func (r *Repository) UpdateEngagement(ctx context.Context, projectID, userID int64, update EngagementUpdate) (*UserStats, error) {
	current, err := r.Get(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	like, dislike := current.Like, current.Dislike
	switch update.Evaluation {
	case "likes":
		like = update.EvaluationStatus
		dislike = false
	case "dislikes":
		like = false
		dislike = update.EvaluationStatus
	}

	key := userStatsKey(projectID, userID)
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"like":    boolField(like),
		"dislike": boolField(dislike),
	})
	if delta := counterDelta(current.Like, like); delta != 0 {
		pipe.IncrBy(ctx, projectCounterKey(projectID, "likes"), delta)
	}
	if delta := counterDelta(current.Dislike, dislike); delta != 0 {
		pipe.IncrBy(ctx, projectCounterKey(projectID, "dislikes"), delta)
	}
	if update.Fund > 0 {
		pipe.HIncrByFloat(ctx, key, "funded", update.Fund)
		pipe.IncrByFloat(ctx, projectCounterKey(projectID, "funded"), update.Fund)
	}
	if update.Collaboration {
		pipe.HSet(ctx, key, "collaborator", "1")
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to update engagement: %w", err)
	}

	return r.Get(ctx, projectID, userID)
}

// Summary returns a project's aggregate engagement. A project nobody
// has touched yet reports ErrStatsNotFound.
func (r *Repository) Summary(ctx context.Context, projectID int64) (*Summary, error) {
	values, err := r.client.MGet(ctx,
		projectCounterKey(projectID, "views"),
		projectCounterKey(projectID, "likes"),
		projectCounterKey(projectID, "dislikes"),
		projectCounterKey(projectID, "funded"),
	).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get project summary: %w", err)
	}

	if values[0] == nil {
		return nil, ErrStatsNotFound
	}

	return &Summary{
		IDProject: projectID,
		Views:     parseInt(values[0]),
		Likes:     parseInt(values[1]),
		Dislikes:  parseInt(values[2]),
		Funded:    parseFloat(values[3]),
	}, nil
}

// CategoryViewPercentages returns each category's share of all recorded
// views, formatted to two decimals.
func (r *Repository) CategoryViewPercentages(ctx context.Context) ([]CategoryViews, error) {
	categories, err := r.client.SMembers(ctx, categorySetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, ErrStatsNotFound
	}

	keys := make([]string, 0, len(categories))
	ids := make([]int64, 0, len(categories))
	for _, c := range categories {
		id, err := strconv.ParseInt(c, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		keys = append(keys, categoryViewsKey(id))
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get category views: %w", err)
	}

	var total int64
	views := make([]int64, len(values))
	for i, v := range values {
		views[i] = parseInt(v)
		total += views[i]
	}
	if total == 0 {
		return nil, ErrStatsNotFound
	}

	result := make([]CategoryViews, 0, len(ids))
	for i, id := range ids {
		percentage := float64(views[i]) / float64(total) * 100
		result = append(result, CategoryViews{
			IDCategory: id,
			Percentage: strconv.FormatFloat(percentage, 'f', 2, 64),
		})
	}

	return result, nil
}

func parseUserStats(projectID, userID int64, data map[string]string) *UserStats {
	categoryID, _ := strconv.ParseInt(data["id_category"], 10, 64)
	funded, _ := strconv.ParseFloat(data["funded"], 64)
	return &UserStats{
		IDProject:    projectID,
		IDUser:       userID,
		IDCategory:   categoryID,
		View:         data["view"] == "1",
		Like:         data["like"] == "1",
		Dislike:      data["dislike"] == "1",
		Funded:       funded,
		Collaborator: data["collaborator"] == "1",
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func counterDelta(before, after bool) int64 {
	switch {
	case !before && after:
		return 1
	case before && !after:
		return -1
	default:
		return 0
	}
}

func parseInt(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(v interface{}) float64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
