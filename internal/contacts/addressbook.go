package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/chatbridge/chatbridge/internal/fault"
)

// AddressBook implements Directory over the macOS AddressBook database
// (AddressBook-v22.abcddb). Queried read-only.
type AddressBook struct {
	db *sql.DB
}

// OpenAddressBook opens the contacts database read-only. A permission
// failure maps to fault.ErrAccessDenied with guidance, matching the
// messages store.
func OpenAddressBook(path string) (*AddressBook, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: cannot read %s; grant the terminal access to Contacts", fault.ErrAccessDenied, path)
		}
		return nil, fmt.Errorf("contacts database %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("open contacts database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping contacts database: %w", err)
	}
	return &AddressBook{db: db}, nil
}

// Close closes the database connection.
func (a *AddressBook) Close() error {
	return a.db.Close()
}

// Lookup finds the display name for an identifier by exact email match or
// by comparing normalized phone numbers. Stored phone numbers carry
// arbitrary punctuation, so phone matching normalizes both sides.
func (a *AddressBook) Lookup(ctx context.Context, identifier string) (string, error) {
	if IsEmail(identifier) {
		return a.lookupEmail(ctx, identifier)
	}
	return a.lookupPhone(ctx, Normalize(identifier))
}

func (a *AddressBook) lookupEmail(ctx context.Context, email string) (string, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT COALESCE(r.ZFIRSTNAME, ''), COALESCE(r.ZLASTNAME, '')
		FROM ZABCDEMAILADDRESS e
		JOIN ZABCDRECORD r ON r.Z_PK = e.ZOWNER
		WHERE e.ZADDRESS = ? COLLATE NOCASE
		LIMIT 1
	`, email)

	var first, last string
	if err := row.Scan(&first, &last); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("email lookup: %w", err)
	}
	return joinName(first, last), nil
}

func (a *AddressBook) lookupPhone(ctx context.Context, normalized string) (string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT p.ZFULLNUMBER, COALESCE(r.ZFIRSTNAME, ''), COALESCE(r.ZLASTNAME, '')
		FROM ZABCDPHONENUMBER p
		JOIN ZABCDRECORD r ON r.Z_PK = p.ZOWNER
	`)
	if err != nil {
		return "", fmt.Errorf("phone lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var number, first, last string
		if err := rows.Scan(&number, &first, &last); err != nil {
			continue
		}
		if Normalize(number) == normalized {
			return joinName(first, last), nil
		}
	}
	return "", rows.Err()
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
