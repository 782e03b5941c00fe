// Package posts stores blog posts and serves them as JSON.
package posts

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

var (
	ErrNotFound = errors.New("post not found")
	ErrConflict = errors.New("slug already exists")
)

// Post is a full blog post. Slug is unique.
type Post struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Excerpt   string    `json:"excerpt"`
	Tags      string    `json:"tags"`
	Date      string    `json:"date"`
	Hero      string    `json:"hero"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is a Post without its content, as returned by List.
type Summary struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Excerpt   string    `json:"excerpt"`
	Tags      string    `json:"tags"`
	Date      string    `json:"date"`
	Hero      string    `json:"hero"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary drops the content.
func (p Post) Summary() Summary {
	return Summary{
		Slug:      p.Slug,
		Title:     p.Title,
		Author:    p.Author,
		Excerpt:   p.Excerpt,
		Tags:      p.Tags,
		Date:      p.Date,
		Hero:      p.Hero,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// Input is the writable part of a post as sent by clients.
type Input struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Excerpt string `json:"excerpt"`
	Tags    string `json:"tags"`
	Date    string `json:"date"`
	Hero    string `json:"hero"`
	Content string `json:"content"`
}

var slugRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Normalize trims surrounding whitespace from every field.
func (in Input) Normalize() Input {
	return Input{
		Slug:    strings.TrimSpace(in.Slug),
		Title:   strings.TrimSpace(in.Title),
		Author:  strings.TrimSpace(in.Author),
		Excerpt: strings.TrimSpace(in.Excerpt),
		Tags:    strings.TrimSpace(in.Tags),
		Date:    strings.TrimSpace(in.Date),
		Hero:    strings.TrimSpace(in.Hero),
		Content: in.Content,
	}
}

// Validate checks a normalized input. Content only needs a non-blank value;
// its whitespace is preserved.
func (in Input) Validate() error {
	content := strings.TrimSpace(in.Content)
	return validation.ValidateStruct(&in,
		validation.Field(&in.Slug,
			validation.Required.Error("is required"),
			validation.Length(1, 200).Error("must be at most 200 characters"),
			validation.Match(slugRe).Error("must contain only letters, digits, '-' or '_'"),
		),
		validation.Field(&in.Title,
			validation.Required.Error("is required"),
			validation.Length(1, 300).Error("must be at most 300 characters"),
		),
		validation.Field(&in.Content,
			validation.By(func(any) error {
				if content == "" {
					return errors.New("is required")
				}
				return nil
			}),
		),
	)
}

// ValidationDetails flattens a validation error into messages such as
// "slug is required", ordered by field name.
func ValidationDetails(err error) []string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	keys := make([]string, 0, len(verrs))
	for k := range verrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s %s", k, verrs[k].Error()))
	}
	return out
}

// toPost builds a Post from an input. Timestamps are left for the store.
func (in Input) toPost() Post {
	return Post{
		Slug:    in.Slug,
		Title:   in.Title,
		Author:  in.Author,
		Excerpt: in.Excerpt,
		Tags:    in.Tags,
		Date:    in.Date,
		Hero:    in.Hero,
		Content: in.Content,
	}
}

// sortSummaries orders by date descending, then created_at descending.
func sortSummaries(s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		if s[i].Date != s[j].Date {
			return s[i].Date > s[j].Date
		}
		return s[i].CreatedAt.After(s[j].CreatedAt)
	})
}
