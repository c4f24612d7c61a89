package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/wo-matcher/internal/model"
)

var (
	ordersID        string
	ordersLocation  string
	ordersSearch    string
	ordersAmount    float64
	ordersTolerance float64
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Summarize or query the loaded work orders",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("orders"); err != nil {
			return err
		}
		orders, err := loadOrders(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		q := ordersQuery{
			ID:        ordersID,
			Location:  ordersLocation,
			Search:    ordersSearch,
			Amount:    ordersAmount,
			Tolerance: ordersTolerance,
		}
		return writeOrders(cmd.OutOrStdout(), model.NewCatalog(orders), q)
	},
}

func init() {
	ordersCmd.Flags().StringVar(&ordersID, "id", "", "look up one work order by id")
	ordersCmd.Flags().StringVar(&ordersLocation, "location", "", "filter by location text")
	ordersCmd.Flags().StringVar(&ordersSearch, "search", "", "search id, location and description")
	ordersCmd.Flags().Float64Var(&ordersAmount, "amount", 0, "filter by amount")
	ordersCmd.Flags().Float64Var(&ordersTolerance, "tolerance", 15, "amount tolerance in percent")
	rootCmd.AddCommand(ordersCmd)
}

// ordersQuery selects one catalog view; an empty query prints the summary.
type ordersQuery struct {
	ID        string
	Location  string
	Search    string
	Amount    float64
	Tolerance float64
}

// orderView is the printed form of a work order.
type orderView struct {
	ID          string  `json:"id"`
	Total       string  `json:"total"`
	Amount      float64 `json:"amount"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
}

func viewOrders(orders []model.WorkOrder) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, wo := range orders {
		out = append(out, orderView{
			ID:          wo.ID,
			Total:       wo.Total,
			Amount:      wo.Amount(),
			Location:    wo.Location,
			Description: wo.Description,
		})
	}
	return out
}

func writeOrders(w io.Writer, cat *model.Catalog, q ordersQuery) error {
	var v any
	switch {
	case q.ID != "":
		wo, ok := cat.ByID(q.ID)
		if !ok {
			return eris.Errorf("work order %q not found", q.ID)
		}
		v = viewOrders([]model.WorkOrder{*wo})[0]
	case q.Location != "":
		v = viewOrders(cat.ByLocation(q.Location))
	case q.Search != "":
		v = viewOrders(cat.Search(q.Search))
	case q.Amount > 0:
		v = viewOrders(cat.ByAmountRange(q.Amount, q.Tolerance))
	default:
		v = cat.Summary()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "write orders")
}
