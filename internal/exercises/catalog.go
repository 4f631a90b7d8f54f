package exercises

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/mvukovic/liftlog/internal/telemetry/tracing"
)

// example catalog call
// https://www.exercisedb.dev/api/v1/exercises/search?q=bench&limit=25&offset=0

const (
	catalogCacheExpireSeconds = 10 * 60
	catalogPageLimit          = 25
)

// Catalog looks exercises up in an external ExerciseDB style API. Responses
// are cached for a few minutes since the catalog data barely changes.
type Catalog struct {
	cache      *freecache.Cache
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewCatalog(baseURL, apiKey string, httpClient *http.Client) *Catalog {
	megabyte := 1024 * 1024
	cacheSize := 10 * megabyte

	return &Catalog{
		cache:      freecache.NewCache(cacheSize),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

type catalogExercise struct {
	ExerciseID       string   `json:"exerciseId"`
	Name             string   `json:"name"`
	TargetMuscles    []string `json:"targetMuscles"`
	SecondaryMuscles []string `json:"secondaryMuscles"`
	Equipments       []string `json:"equipments"`
	BodyParts        []string `json:"bodyParts"`
	Instructions     []string `json:"instructions"`
	GifURL           string   `json:"gifUrl"`
}

type catalogResponse struct {
	Data []catalogExercise `json:"data"`
}

// Search runs the catalog's fuzzy search, which covers name, muscles,
// equipment and body parts.
func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]Exercise, error) {
	if limit < 1 {
		limit = catalogPageLimit
	}
	cacheKey := fmt.Sprintf("search::%s::%d", strings.ToLower(query), limit)
	requestURL := fmt.Sprintf(
		"%s/exercises/search?q=%s&limit=%d&offset=0",
		c.baseURL, url.QueryEscape(query), limit,
	)
	return c.fetch(ctx, "catalog.search", cacheKey, requestURL)
}

// List returns the first catalog page, sorted by name.
func (c *Catalog) List(ctx context.Context) ([]Exercise, error) {
	requestURL := fmt.Sprintf(
		"%s/exercises?limit=%d&offset=0&sortBy=name&sortOrder=asc",
		c.baseURL, catalogPageLimit,
	)
	return c.fetch(ctx, "catalog.list", "all", requestURL)
}

// Filter narrows catalog exercises by name, muscle and body part.
func (c *Catalog) Filter(ctx context.Context, name, muscle, bodyPart string) ([]Exercise, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", catalogPageLimit))
	params.Set("offset", "0")
	if name != "" {
		params.Set("search", name)
	}
	if muscle != "" {
		params.Set("muscles", muscle)
	}
	if bodyPart != "" {
		params.Set("bodyParts", bodyPart)
	}

	cacheKey := "filter::" + strings.ToLower(params.Encode())
	requestURL := c.baseURL + "/exercises/filter?" + params.Encode()
	return c.fetch(ctx, "catalog.filter", cacheKey, requestURL)
}

func (c *Catalog) fetch(ctx context.Context, spanName, cacheKey, requestURL string) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, spanName)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	catalogResp := &catalogResponse{}

	if cachedBytes, err := c.cache.Get([]byte(cacheKey)); err == nil {
		if err = json.Unmarshal(cachedBytes, catalogResp); err == nil {
			log.Tracef("catalog response for [%s] served from cache", cacheKey)
			return c.transformAll(catalogResp.Data), nil
		}
		log.Errorf("failed to unmarshal cached catalog response for [%s]: %s", cacheKey, err)
	}

	log.Debugf("calling exercise catalog: %s", requestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exercise catalog responded with status: %d", resp.StatusCode)
	}

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response bytes: %w", err)
	}

	if err := json.Unmarshal(respBytes, catalogResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog response bytes: %w", err)
	}

	if err = c.cache.Set([]byte(cacheKey), respBytes, catalogCacheExpireSeconds); err != nil {
		log.Errorf("failed to write catalog cache for [%s]: %s", cacheKey, err)
	}

	return c.transformAll(catalogResp.Data), nil
}

func (c *Catalog) transformAll(catalogExercises []catalogExercise) []Exercise {
	result := make([]Exercise, 0, len(catalogExercises))
	for _, ce := range catalogExercises {
		result = append(result, transformCatalogExercise(ce))
	}
	return result
}

func transformCatalogExercise(ce catalogExercise) Exercise {
	id := ce.ExerciseID
	if id == "" {
		id = strings.ToLower(strings.ReplaceAll(ce.Name, " ", "_"))
	}
	muscle := ""
	if len(ce.TargetMuscles) > 0 {
		muscle = ce.TargetMuscles[0]
	}
	exerciseType := "strength"
	if len(ce.BodyParts) > 0 {
		exerciseType = ce.BodyParts[0]
	}
	equipments := ce.Equipments
	if equipments == nil {
		equipments = make([]string, 0)
	}

	return Exercise{
		ID:               id,
		Name:             ce.Name,
		Muscle:           muscle,
		Equipments:       equipments,
		Instructions:     strings.Join(ce.Instructions, " "),
		Type:             exerciseType,
		GifURL:           ce.GifURL,
		SecondaryMuscles: ce.SecondaryMuscles,
		BodyParts:        ce.BodyParts,
		IsCustom:         false,
	}
}
