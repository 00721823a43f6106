package blockchain

// Mempool holds validated transactions waiting for the next block, in
// submission order. It has no lock of its own; the owning Ledger guards it.
type Mempool struct {
	transactions []Transaction
}

func NewMempool() *Mempool {
	return &Mempool{}
}

func (m *Mempool) Add(tx Transaction) {
	m.transactions = append(m.transactions, tx)
}

// PendingFrom sums the amounts already pooled for address.
func (m *Mempool) PendingFrom(address Address) int64 {
	var sum int64
	for _, tx := range m.transactions {
		if from, ok := tx.Sender.Address(); ok && from == address {
			sum += tx.Amount
		}
	}
	return sum
}

// Snapshot returns a copy of the pooled transactions.
func (m *Mempool) Snapshot() []Transaction {
	txs := make([]Transaction, len(m.transactions))
	copy(txs, m.transactions)
	return txs
}

// Drop removes the first n transactions.
func (m *Mempool) Drop(n int) {
	if n >= len(m.transactions) {
		m.transactions = nil
		return
	}
	m.transactions = append([]Transaction(nil), m.transactions[n:]...)
}

func (m *Mempool) Len() int {
	return len(m.transactions)
}
