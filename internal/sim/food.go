package sim

import (
	"math/rand/v2"
	"slices"

	"github.com/valter-silva-au/settlement/pkg/models"
)

// FoodStock is the part of the inventory the daily meal draws from.
type FoodStock interface {
	Quantity(itemID string) int
	Remove(itemID string, amount int)
}

// FoodResult describes one daily meal.
type FoodResult struct {
	Date       models.GameDate
	Population int
	Demand     int
	Consumed   int
	Fed        int
	Hungry     []int
	Remaining  int
}

// FoodConsumer feeds the settlement once a day and tracks who went hungry.
// The hungry set is replaced by every meal.
type FoodConsumer struct {
	stock     FoodStock
	itemID    string
	perCapita int
	rng       *rand.Rand

	hungry   map[int]bool
	lastDate models.GameDate
}

// NewFoodConsumer creates a FoodConsumer eating itemID from stock at
// perCapita units per character per day. rng picks who goes hungry when
// food runs short; nil uses a randomly seeded source.
func NewFoodConsumer(stock FoodStock, itemID string, perCapita int, rng *rand.Rand) *FoodConsumer {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &FoodConsumer{
		stock:     stock,
		itemID:    itemID,
		perCapita: max(1, perCapita),
		rng:       rng,
		hungry:    make(map[int]bool),
	}
}

// Due reports whether the meal for date has not been served yet. The zero
// watermark means no meal has ever been served.
func (f *FoodConsumer) Due(date models.GameDate) bool {
	return f.lastDate != date
}

// Consume serves the meal for date to chars. If there is not enough food,
// as many characters as the stock covers are fed, chosen by a uniform
// shuffle, and the rest are marked hungry. Only food actually eaten is
// removed.
func (f *FoodConsumer) Consume(date models.GameDate, chars []*models.Character) FoodResult {
	res := FoodResult{
		Date:       date,
		Population: len(chars),
		Demand:     len(chars) * f.perCapita,
	}
	clear(f.hungry)
	f.lastDate = date

	stock := f.stock.Quantity(f.itemID)
	if stock >= res.Demand {
		res.Consumed = res.Demand
		res.Fed = len(chars)
	} else {
		res.Fed = stock / f.perCapita
		res.Consumed = res.Fed * f.perCapita

		order := slices.Clone(chars)
		f.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, c := range order[res.Fed:] {
			f.hungry[c.ID] = true
			res.Hungry = append(res.Hungry, c.ID)
		}
		slices.Sort(res.Hungry)
	}

	if res.Consumed > 0 {
		f.stock.Remove(f.itemID, res.Consumed)
	}
	res.Remaining = f.stock.Quantity(f.itemID)
	return res
}

// IsHungry reports whether the character missed the last meal.
func (f *FoodConsumer) IsHungry(characterID int) bool {
	return f.hungry[characterID]
}

// Hungry returns the IDs of characters who missed the last meal, sorted.
func (f *FoodConsumer) Hungry() []int {
	ids := make([]int, 0, len(f.hungry))
	for id := range f.hungry {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// LastMealDate returns the date of the last meal, or the zero date.
func (f *FoodConsumer) LastMealDate() models.GameDate {
	return f.lastDate
}

// Restore reinstates the watermark and hungry set from a saved game.
func (f *FoodConsumer) Restore(lastDate models.GameDate, hungry []int) {
	f.lastDate = lastDate
	clear(f.hungry)
	for _, id := range hungry {
		f.hungry[id] = true
	}
}
