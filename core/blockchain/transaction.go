package blockchain

import (
	"crypto/sha256"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mr-tron/base58/base58"
)

// Address is an opaque account identifier. It carries no key material.
type Address string

// Sender is either an account address or the "none" value used by minted rewards.
// The zero value is NoSender.
type Sender struct {
	address Address
	present bool
}

// NoSender marks a transaction that mints new supply.
var NoSender = Sender{}

// From returns a Sender for the given address.
func From(a Address) Sender {
	return Sender{address: a, present: true}
}

// Address returns the sender address and whether one is set.
func (s Sender) Address() (Address, bool) {
	return s.address, s.present
}

// IsNone reports whether s is the absent sender of a reward.
func (s Sender) IsNone() bool {
	return !s.present
}

// String returns the address, or "<none>" for a reward sender.
func (s Sender) String() string {
	if !s.present {
		return "<none>"
	}
	return string(s.address)
}

// MarshalJSON encodes the absent sender as null and any other as its address string.
func (s Sender) MarshalJSON() ([]byte, error) {
	if !s.present {
		return []byte("null"), nil
	}
	return json.Marshal(string(s.address))
}

// UnmarshalJSON decodes null to NoSender and a string to From(address).
func (s *Sender) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = NoSender
		return nil
	}
	var a string
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*s = From(Address(a))
	return nil
}

// Transaction is a single transfer, or a minted reward when Sender is NoSender.
// It is a value type; the ledger never hands out references to stored records.
type Transaction struct {
	Sender    Sender    `json:"sender"`
	Recipient Address   `json:"recipient"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
	LockUntil time.Time `json:"lock_until"`
}

func NewTransaction(from, to Address, amount int64, createdAt time.Time) Transaction {
	return Transaction{
		Sender:    From(from),
		Recipient: to,
		Amount:    amount,
		CreatedAt: createdAt,
	}
}

// NewRewardTransaction mints amount to the recipient.
func NewRewardTransaction(to Address, amount int64, createdAt time.Time) Transaction {
	return Transaction{
		Sender:    NoSender,
		Recipient: to,
		Amount:    amount,
		CreatedAt: createdAt,
	}
}

// WithLockUntil returns a copy of tx that can't be pooled before t.
func (tx Transaction) WithLockUntil(t time.Time) Transaction {
	tx.LockUntil = t
	return tx
}

func (tx Transaction) IsReward() bool {
	return tx.Sender.IsNone()
}

func (tx Transaction) IsLocked() bool {
	return !tx.LockUntil.IsZero()
}

// Canonical returns the hashing form of a single transaction: sender, recipient,
// amount and (when set) lockUntil in unix milliseconds. Every value is length
// prefixed, so no value can bleed into its neighbour. A none sender is the bare
// literal "-", which a length prefix never starts with.
func (tx Transaction) Canonical() string {
	var b strings.Builder
	if addr, ok := tx.Sender.Address(); ok {
		writeField(&b, string(addr))
	} else {
		b.WriteString("-")
	}
	writeField(&b, string(tx.Recipient))
	writeField(&b, strconv.FormatInt(tx.Amount, 10))
	if tx.IsLocked() {
		writeField(&b, strconv.FormatInt(tx.LockUntil.UnixMilli(), 10))
	}
	b.WriteString(";")
	return b.String()
}

// ID identifies a submitted record. Unlike the canonical form it includes the
// creation time, so two equal transfers submitted at different times differ.
func (tx Transaction) ID() string {
	data := tx.Canonical() + strconv.FormatInt(tx.CreatedAt.UnixNano(), 10)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// TransactionsToString is the canonical serialization of an ordered transaction list.
func TransactionsToString(transactions []Transaction) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(len(transactions)))
	b.WriteString("#")
	for _, tx := range transactions {
		b.WriteString(tx.Canonical())
	}
	return b.String()
}

func writeField(b *strings.Builder, v string) {
	b.WriteString(strconv.Itoa(len(v)))
	b.WriteString(":")
	b.WriteString(v)
}
