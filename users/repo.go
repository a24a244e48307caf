package users

// UserRepo stores users together with their password hashes.
type UserRepo interface {
	Upsert(user *User, passwordHash string) error
	Delete(email string) error
	GetByEmail(email string) (*User, string, error)
	GetByID(ID string) (*User, error)
	List(offset, limit int) ([]*User, error)
}
