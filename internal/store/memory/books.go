package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/safar/go-bookstore/internal/domain"
	"github.com/safar/go-bookstore/internal/repository"
	"github.com/safar/go-bookstore/internal/uow"
)

type bookRepository struct {
	u     *UnitOfWork
	cache *uow.IdentityMap[*domain.Book]
}

func bookKey(id string) string { return "book:" + id }

func (r *bookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	if r.cache.Removed(id) {
		return nil, repository.ErrNotFound
	}
	if book, ok := r.cache.Get(id); ok {
		return book, nil
	}

	var book *domain.Book
	err := r.u.read(func(t *tables) error {
		rec, ok := t.books[id]
		if !ok {
			return repository.ErrNotFound
		}
		r.u.session.Observe(bookKey(id), rec.version)
		book = domain.RestoreBook(rec.state)
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Put(id, book)
	return book, nil
}

func (r *bookRepository) GetAll(ctx context.Context) ([]*domain.Book, error) {
	return r.list(func(domain.BookState) bool { return true })
}

func (r *bookRepository) GetByCategory(ctx context.Context, category domain.BookCategory) ([]*domain.Book, error) {
	return r.list(func(s domain.BookState) bool { return s.Category == category })
}

func (r *bookRepository) GetByStatus(ctx context.Context, status domain.BookStatus) ([]*domain.Book, error) {
	return r.list(func(s domain.BookState) bool { return s.Status == status })
}

func (r *bookRepository) Search(ctx context.Context, term string) ([]*domain.Book, error) {
	term = strings.ToLower(term)
	return r.list(func(s domain.BookState) bool {
		return strings.Contains(strings.ToLower(s.Title), term) ||
			strings.Contains(strings.ToLower(s.Author), term)
	})
}

func (r *bookRepository) list(match func(domain.BookState) bool) ([]*domain.Book, error) {
	var states []domain.BookState
	err := r.u.read(func(t *tables) error {
		for id, rec := range t.books {
			if !match(rec.state) {
				continue
			}
			r.u.session.Observe(bookKey(id), rec.version)
			states = append(states, rec.state)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(states, func(i, j int) bool {
		if states[i].Title != states[j].Title {
			return states[i].Title < states[j].Title
		}
		return states[i].ID < states[j].ID
	})

	ids := make([]string, len(states))
	books := make([]*domain.Book, len(states))
	for i, s := range states {
		ids[i] = s.ID
		books[i] = domain.RestoreBook(s)
	}
	return r.cache.Resolve(ids, books), nil
}

func (r *bookRepository) Add(ctx context.Context, book *domain.Book) error {
	r.cache.Put(book.ID(), book)
	r.u.session.Insert(bookKey(book.ID()), func(ctx context.Context, t *tables, _ int) (int64, error) {
		s := book.Snapshot()
		if _, ok := t.books[s.ID]; ok {
			return 0, fmt.Errorf("insert book %s: %w", s.ID, ErrDuplicateKey)
		}
		for _, rec := range t.books {
			if rec.state.ISBN == s.ISBN {
				return 0, fmt.Errorf("insert book isbn %s: %w", s.ISBN, ErrDuplicateKey)
			}
		}
		t.books[s.ID] = record[domain.BookState]{state: s, version: 1}
		return 1, nil
	})
	return nil
}

func (r *bookRepository) Update(ctx context.Context, book *domain.Book) error {
	r.cache.Put(book.ID(), book)
	r.u.session.Update(bookKey(book.ID()), func(ctx context.Context, t *tables, version int) (int64, error) {
		s := book.Snapshot()
		rec, ok := t.books[s.ID]
		if !ok || (version != 0 && rec.version != version) {
			return 0, nil
		}
		t.books[s.ID] = record[domain.BookState]{state: s, version: rec.version + 1}
		return 1, nil
	})
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id string) error {
	r.cache.Remove(id)
	r.u.session.Delete(bookKey(id), func(ctx context.Context, t *tables, version int) (int64, error) {
		rec, ok := t.books[id]
		if !ok || (version != 0 && rec.version != version) {
			return 0, nil
		}
		for _, order := range t.orders {
			for _, item := range order.state.Items {
				if item.BookID == id {
					return 0, fmt.Errorf("delete book %s: %w", id, ErrReferenced)
				}
			}
		}
		delete(t.books, id)
		return 1, nil
	})
	return nil
}

func (r *bookRepository) Exists(ctx context.Context, id string) (bool, error) {
	if r.cache.Removed(id) {
		return false, nil
	}
	if _, ok := r.cache.Get(id); ok {
		return true, nil
	}
	var found bool
	err := r.u.read(func(t *tables) error {
		_, found = t.books[id]
		return nil
	})
	return found, err
}

func (r *bookRepository) ExistsByISBN(ctx context.Context, isbn string) (bool, error) {
	var found bool
	err := r.u.read(func(t *tables) error {
		for _, rec := range t.books {
			if rec.state.ISBN == isbn {
				found = true
				break
			}
		}
		return nil
	})
	return found, err
}
