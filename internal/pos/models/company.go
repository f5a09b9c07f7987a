package models

import (
	"time"

	"github.com/google/uuid"
)

// Company (empresa) partitions catalog and sales data. Schema names the
// database namespace holding its tables; an empty Schema means the company
// cannot be selected yet.
type Company struct {
	ID     uuid.UUID
	CNPJ   string
	Name   string
	Schema string
}

// Membership links a user to a company.
type Membership struct {
	UserID    string
	CompanyID uuid.UUID
	CreatedAt time.Time
}

// Account is a user able to sign in.
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}

// NormalizeCNPJ keeps only the digits of a CNPJ.
func NormalizeCNPJ(cnpj string) string {
	digits := make([]byte, 0, len(cnpj))
	for i := 0; i < len(cnpj); i++ {
		if cnpj[i] >= '0' && cnpj[i] <= '9' {
			digits = append(digits, cnpj[i])
		}
	}
	return string(digits)
}

// FormatCNPJ renders a 14 digit CNPJ as XX.XXX.XXX/XXXX-XX. Anything else
// is returned unchanged.
func FormatCNPJ(cnpj string) string {
	d := NormalizeCNPJ(cnpj)
	if len(d) != 14 {
		return cnpj
	}
	return d[0:2] + "." + d[2:5] + "." + d[5:8] + "/" + d[8:12] + "-" + d[12:14]
}
