package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/mbocharov/tinylink/internal/errors"
	"github.com/mbocharov/tinylink/internal/model"
)

// mockLinkRepository имитирует хранилище: атомарный check-and-insert
// и инкременты под мьютексом, как это делает настоящая БД
type mockLinkRepository struct {
	mu          sync.Mutex
	byCode      map[string]*model.Link
	nextID      int64
	shouldFail  bool
	failCreates int // первые N вставок возвращают ErrCodeTaken
	createCalls int
}

func newMockLinkRepository() *mockLinkRepository {
	return &mockLinkRepository{
		byCode: make(map[string]*model.Link),
	}
}

func (m *mockLinkRepository) Create(ctx context.Context, link *model.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFail {
		return errors.New("database error")
	}

	m.createCalls++

	if m.failCreates > 0 && m.createCalls <= m.failCreates {
		return apperrors.ErrCodeTaken
	}

	if _, exists := m.byCode[link.CustomCode]; exists {
		return apperrors.ErrCodeTaken
	}

	m.nextID++
	link.ID = m.nextID
	link.CreatedAt = time.Now()
	link.UpdatedAt = link.CreatedAt

	stored := *link
	m.byCode[link.CustomCode] = &stored
	return nil
}

func (m *mockLinkRepository) GetByCode(ctx context.Context, code string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shouldFail {
		return nil, errors.New("database error")
	}

	link, exists := m.byCode[code]
	if !exists {
		return nil, apperrors.ErrLinkNotFound
	}

	result := *link
	return &result, nil
}

func (m *mockLinkRepository) GetByID(ctx context.Context, id int64) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, link := range m.byCode {
		if link.ID == id {
			result := *link
			return &result, nil
		}
	}

	return nil, apperrors.ErrLinkNotFound
}

func (m *mockLinkRepository) List(ctx context.Context) ([]model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	links := make([]model.Link, 0, len(m.byCode))
	for _, link := range m.byCode {
		links = append(links, *link)
	}

	// От новых к старым, при равном времени создания - по убыванию id
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.After(links[j].CreatedAt)
		}
		return links[i].ID > links[j].ID
	})

	return links, nil
}

func (m *mockLinkRepository) Update(ctx context.Context, link *model.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, exists := m.byCode[link.CustomCode]
	if !exists || stored.ID != link.ID {
		return apperrors.ErrLinkNotFound
	}

	stored.Title = link.Title
	stored.URL = link.URL
	stored.Description = link.Description
	stored.UpdatedAt = time.Now()
	link.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *mockLinkRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for code, link := range m.byCode {
		if link.ID == id {
			delete(m.byCode, code)
			return nil
		}
	}

	return apperrors.ErrLinkNotFound
}

func (m *mockLinkRepository) IncrementClickCount(ctx context.Context, code string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	link, exists := m.byCode[code]
	if !exists {
		return 0, apperrors.ErrLinkNotFound
	}

	link.ClickCount++
	return link.ClickCount, nil
}

func (m *mockLinkRepository) totalClicks() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, link := range m.byCode {
		total += link.ClickCount
	}
	return total
}

func newTestService(repo *mockLinkRepository) *LinkService {
	return NewLinkService(repo, "http://localhost:8080", zerolog.Nop())
}

func TestNewLinkService(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	if service.linkRepo == nil {
		t.Error("LinkService.linkRepo not set correctly")
	}

	if service.baseURL != "http://localhost:8080" {
		t.Error("LinkService.baseURL not set correctly")
	}

	if service.maxRetries != 5 {
		t.Error("LinkService.maxRetries should default to 5")
	}
}

func TestLinkService_CreateLink(t *testing.T) {
	tests := []struct {
		name    string
		request *model.CreateLinkRequest
		wantErr bool
		errType string
	}{
		{
			name:    "valid link without custom code",
			request: &model.CreateLinkRequest{Title: "Example", URL: "https://example.com"},
			wantErr: false,
		},
		{
			name:    "valid link with custom code",
			request: &model.CreateLinkRequest{Title: "Example", URL: "https://example.com", CustomCode: "ex1"},
			wantErr: false,
		},
		{
			name:    "valid link with description",
			request: &model.CreateLinkRequest{Title: "Example", URL: "https://example.com", Description: "a note"},
			wantErr: false,
		},
		{
			name:    "empty title",
			request: &model.CreateLinkRequest{Title: "", URL: "https://example.com"},
			wantErr: true,
			errType: "validation",
		},
		{
			name:    "whitespace title",
			request: &model.CreateLinkRequest{Title: "   ", URL: "https://example.com"},
			wantErr: true,
			errType: "validation",
		},
		{
			name:    "empty URL",
			request: &model.CreateLinkRequest{Title: "Example", URL: ""},
			wantErr: true,
			errType: "validation",
		},
		{
			name:    "relative URL",
			request: &model.CreateLinkRequest{Title: "Example", URL: "example.com"},
			wantErr: true,
			errType: "validation",
		},
		{
			name:    "custom code with invalid characters",
			request: &model.CreateLinkRequest{Title: "Example", URL: "https://example.com", CustomCode: "my code"},
			wantErr: true,
			errType: "validation",
		},
		{
			name:    "reserved custom code",
			request: &model.CreateLinkRequest{Title: "Example", URL: "https://example.com", CustomCode: "api"},
			wantErr: true,
			errType: "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockLinkRepository()
			service := newTestService(repo)

			response, err := service.CreateLink(context.Background(), tt.request)

			if tt.wantErr {
				if err == nil {
					t.Fatal("CreateLink() expected error, got nil")
				}
				if tt.errType == "validation" && !apperrors.IsValidationError(err) {
					t.Errorf("CreateLink() error = %v, want validation error", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("CreateLink() error = %v", err)
			}

			if response.ClickCount != 0 {
				t.Errorf("CreateLink() clickCount = %d, want 0", response.ClickCount)
			}

			if response.CustomCode == "" {
				t.Error("CreateLink() customCode is empty")
			}

			if tt.request.CustomCode != "" && response.CustomCode != tt.request.CustomCode {
				t.Errorf("CreateLink() customCode = %q, want %q", response.CustomCode, tt.request.CustomCode)
			}

			wantShort := "http://localhost:8080/" + response.CustomCode
			if response.ShortURL != wantShort {
				t.Errorf("CreateLink() shortUrl = %q, want %q", response.ShortURL, wantShort)
			}
		})
	}
}

func TestLinkService_CreateLink_DuplicateCustomCode(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	first := &model.CreateLinkRequest{Title: "First", URL: "https://example.com", CustomCode: "taken"}
	if _, err := service.CreateLink(context.Background(), first); err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	callsBefore := repo.createCalls

	second := &model.CreateLinkRequest{Title: "Second", URL: "https://example.org", CustomCode: "taken"}
	_, err := service.CreateLink(context.Background(), second)

	if !errors.Is(err, apperrors.ErrCodeTaken) {
		t.Errorf("CreateLink() error = %v, want ErrCodeTaken", err)
	}

	// Пользовательский код не перегенерируется: ровно одна попытка вставки
	if repo.createCalls != callsBefore+1 {
		t.Errorf("CreateLink() attempted %d inserts, want 1", repo.createCalls-callsBefore)
	}
}

func TestLinkService_CreateLink_RetriesOnCollision(t *testing.T) {
	repo := newMockLinkRepository()
	repo.failCreates = 2 // две коллизии, третья вставка проходит
	service := newTestService(repo)

	response, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Example",
		URL:   "https://example.com",
	})
	if err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	if repo.createCalls != 3 {
		t.Errorf("CreateLink() attempted %d inserts, want 3", repo.createCalls)
	}

	if response.CustomCode == "" {
		t.Error("CreateLink() customCode is empty")
	}
}

func TestLinkService_CreateLink_GenerationExhausted(t *testing.T) {
	repo := newMockLinkRepository()
	repo.failCreates = 1000 // код-спейс "исчерпан" - любая вставка коллизия
	service := newTestService(repo)

	_, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Example",
		URL:   "https://example.com",
	})

	var businessErr *apperrors.BusinessError
	if !errors.As(err, &businessErr) || businessErr.Code != "CODE_GENERATION_EXHAUSTED" {
		t.Errorf("CreateLink() error = %v, want ErrCodeGenerationExhausted", err)
	}

	// Ограниченное число попыток, не бесконечный цикл
	if repo.createCalls != 5 {
		t.Errorf("CreateLink() attempted %d inserts, want 5", repo.createCalls)
	}
}

func TestLinkService_RoundTrip(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	created, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title:      "Ex",
		URL:        "https://example.com",
		CustomCode: "ex1",
	})
	if err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	got, err := service.GetLink(context.Background(), "ex1")
	if err != nil {
		t.Fatalf("GetLink() error = %v", err)
	}

	if got.CustomCode != "ex1" {
		t.Errorf("GetLink() customCode = %q, want %q", got.CustomCode, "ex1")
	}
	if got.URL != "https://example.com" {
		t.Errorf("GetLink() url = %q, want %q", got.URL, "https://example.com")
	}
	if got.ClickCount != 0 {
		t.Errorf("GetLink() clickCount = %d, want 0", got.ClickCount)
	}
	if got.ID != created.ID {
		t.Errorf("GetLink() id = %d, want %d", got.ID, created.ID)
	}
}

func TestLinkService_GetLink_DoesNotCountClick(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	if _, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Ex", URL: "https://example.com", CustomCode: "ex1",
	}); err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := service.GetLink(context.Background(), "ex1"); err != nil {
			t.Fatalf("GetLink() error = %v", err)
		}
	}

	got, _ := service.GetLink(context.Background(), "ex1")
	if got.ClickCount != 0 {
		t.Errorf("GetLink() clickCount = %d after stats reads, want 0", got.ClickCount)
	}
}

func TestLinkService_ResolveLink(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	if _, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Ex", URL: "https://example.com", CustomCode: "ex1",
	}); err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	url, err := service.ResolveLink(context.Background(), "ex1")
	if err != nil {
		t.Fatalf("ResolveLink() error = %v", err)
	}

	if url != "https://example.com" {
		t.Errorf("ResolveLink() url = %q, want %q", url, "https://example.com")
	}

	got, _ := service.GetLink(context.Background(), "ex1")
	if got.ClickCount != 1 {
		t.Errorf("clickCount = %d after one resolve, want 1", got.ClickCount)
	}
}

func TestLinkService_ResolveLink_NotFound(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	if _, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Ex", URL: "https://example.com", CustomCode: "ex1",
	}); err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	_, err := service.ResolveLink(context.Background(), "missing")
	if !errors.Is(err, apperrors.ErrLinkNotFound) {
		t.Errorf("ResolveLink() error = %v, want ErrLinkNotFound", err)
	}

	// Неудачный резолв не трогает чужие счетчики
	if repo.totalClicks() != 0 {
		t.Errorf("totalClicks = %d after failed resolve, want 0", repo.totalClicks())
	}
}

func TestLinkService_ListLinks_Order(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	for _, code := range []string{"aaa", "bbb", "ccc"} {
		if _, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
			Title: code, URL: "https://example.com", CustomCode: code,
		}); err != nil {
			t.Fatalf("CreateLink(%q) error = %v", code, err)
		}
	}

	links, err := service.ListLinks(context.Background())
	if err != nil {
		t.Fatalf("ListLinks() error = %v", err)
	}

	if len(links) != 3 {
		t.Fatalf("ListLinks() returned %d links, want 3", len(links))
	}

	// Новые первыми: C, B, A
	want := []string{"ccc", "bbb", "aaa"}
	for i, code := range want {
		if links[i].CustomCode != code {
			t.Errorf("ListLinks()[%d].customCode = %q, want %q", i, links[i].CustomCode, code)
		}
	}
}

func TestLinkService_UpdateLink(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	created, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Old", URL: "https://old.example.com", CustomCode: "ex1",
	})
	if err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	desc := "updated note"
	updated, err := service.UpdateLink(context.Background(), created.ID, &model.UpdateLinkRequest{
		Title:       "New",
		URL:         "https://new.example.com",
		Description: &desc,
	})
	if err != nil {
		t.Fatalf("UpdateLink() error = %v", err)
	}

	if updated.Title != "New" || updated.URL != "https://new.example.com" || updated.Description != "updated note" {
		t.Errorf("UpdateLink() = %+v, fields not updated", updated)
	}

	// Код не меняется при редактировании
	if updated.CustomCode != "ex1" {
		t.Errorf("UpdateLink() customCode = %q, want %q", updated.CustomCode, "ex1")
	}
}

func TestLinkService_UpdateLink_Validation(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	created, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Ex", URL: "https://example.com", CustomCode: "ex1",
	})
	if err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	if _, err := service.UpdateLink(context.Background(), created.ID, &model.UpdateLinkRequest{
		Title: "", URL: "https://example.com",
	}); !apperrors.IsValidationError(err) {
		t.Errorf("UpdateLink() with empty title error = %v, want validation error", err)
	}

	if _, err := service.UpdateLink(context.Background(), created.ID, &model.UpdateLinkRequest{
		Title: "Ex", URL: "not-a-url",
	}); !apperrors.IsValidationError(err) {
		t.Errorf("UpdateLink() with bad url error = %v, want validation error", err)
	}
}

func TestLinkService_DeleteLink_FreesCode(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	first, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "First", URL: "https://example.com", CustomCode: "reuse",
	})
	if err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	if err := service.DeleteLink(context.Background(), first.ID); err != nil {
		t.Fatalf("DeleteLink() error = %v", err)
	}

	// Удаленный код сразу можно занять заново
	second, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Second", URL: "https://example.org", CustomCode: "reuse",
	})
	if err != nil {
		t.Fatalf("CreateLink() after delete error = %v", err)
	}

	if second.ID == first.ID {
		t.Error("new link reused the old id")
	}

	// Старый id больше не резолвится
	if _, err := service.GetLinkByID(context.Background(), first.ID); !errors.Is(err, apperrors.ErrLinkNotFound) {
		t.Errorf("GetLinkByID(old id) error = %v, want ErrLinkNotFound", err)
	}
}

func TestLinkService_DeleteLink_NotFound(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	if err := service.DeleteLink(context.Background(), 42); !errors.Is(err, apperrors.ErrLinkNotFound) {
		t.Errorf("DeleteLink() error = %v, want ErrLinkNotFound", err)
	}
}

func TestLinkService_ConcurrentCreateSameCode(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	const workers = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	duplicates := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
				Title: "Race", URL: "https://example.com", CustomCode: "contested",
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperrors.ErrCodeTaken):
				duplicates++
			default:
				t.Errorf("CreateLink() unexpected error = %v", err)
			}
		}()
	}

	wg.Wait()

	// Ровно один победитель, остальные получают коллизию
	if successes != 1 {
		t.Errorf("successes = %d, want 1", successes)
	}
	if duplicates != workers-1 {
		t.Errorf("duplicates = %d, want %d", duplicates, workers-1)
	}
}

func TestLinkService_ConcurrentCreateDistinctCodes(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	const workers = 50

	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			_, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
				Title:      "Link",
				URL:        "https://example.com",
				CustomCode: "code-" + string(rune('a'+n%26)) + string(rune('a'+n/26)),
			})
			errs <- err
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("CreateLink() error = %v", err)
		}
	}

	links, err := service.ListLinks(context.Background())
	if err != nil {
		t.Fatalf("ListLinks() error = %v", err)
	}
	if len(links) != workers {
		t.Errorf("ListLinks() returned %d links, want %d", len(links), workers)
	}
}

func TestLinkService_ConcurrentResolve_NoLostUpdates(t *testing.T) {
	repo := newMockLinkRepository()
	service := newTestService(repo)

	if _, err := service.CreateLink(context.Background(), &model.CreateLinkRequest{
		Title: "Hot", URL: "https://example.com", CustomCode: "hot",
	}); err != nil {
		t.Fatalf("CreateLink() error = %v", err)
	}

	const clicks = 100

	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			url, err := service.ResolveLink(context.Background(), "hot")
			if err != nil {
				t.Errorf("ResolveLink() error = %v", err)
				return
			}
			if url != "https://example.com" {
				t.Errorf("ResolveLink() url = %q, want %q", url, "https://example.com")
			}
		}()
	}

	wg.Wait()

	got, err := service.GetLink(context.Background(), "hot")
	if err != nil {
		t.Fatalf("GetLink() error = %v", err)
	}

	if got.ClickCount != clicks {
		t.Errorf("clickCount = %d after %d concurrent resolves, want %d", got.ClickCount, clicks, clicks)
	}
}
