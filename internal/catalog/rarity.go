package catalog

// Rarity classifies creature templates. Rarities are totally ordered:
// common < rare < epic < legendary. There is nothing above legendary.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var rarityRank = map[Rarity]int{
	RarityCommon:    0,
	RarityRare:      1,
	RarityEpic:      2,
	RarityLegendary: 3,
}

var rarityOrder = []Rarity{RarityCommon, RarityRare, RarityEpic, RarityLegendary}

// Rarities returns all rarities in ascending order.
func Rarities() []Rarity {
	return append([]Rarity(nil), rarityOrder...)
}

// Valid reports whether r is a known rarity.
func (r Rarity) Valid() bool {
	_, ok := rarityRank[r]
	return ok
}

// Rank returns the position of r in the rarity order, -1 if unknown.
func (r Rarity) Rank() int {
	if rank, ok := rarityRank[r]; ok {
		return rank
	}
	return -1
}

// Next returns the next rarity up. ok is false for legendary and for
// unknown rarities.
func (r Rarity) Next() (Rarity, bool) {
	rank, known := rarityRank[r]
	if !known || rank+1 >= len(rarityOrder) {
		return "", false
	}
	return rarityOrder[rank+1], true
}
