package main

import (
	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
	"github.com/cjmurphy27/barn-management-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	lineDescription string
	lineQuantity    string
	linePrice       string
	lineCategory    string
	lineUnit        string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile one purchased line item into the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		barn, err := barnID()
		if err != nil {
			return err
		}
		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		item := service.NewLineItem(lineDescription, lineQuantity, linePrice, lineCategory, lineUnit)
		resp, err := a.svc.Reconcile.ReconcileLineItem(cmd.Context(), barn, item)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var (
	adjustRecord    string
	adjustQuantity  string
	adjustDirection string
	adjustReason    string
	adjustUnitCost  string
)

var adjustCmd = &cobra.Command{
	Use:   "adjust",
	Short: "Manually add or remove stock on a supply record",
	RunE: func(cmd *cobra.Command, args []string) error {
		barn, err := barnID()
		if err != nil {
			return err
		}
		recordID, err := uuid.Parse(adjustRecord)
		if err != nil {
			return err
		}
		req := dto.AdjustStockRequest{
			Direction: adjustDirection,
			Quantity:  dto.FlexNumber(adjustQuantity),
		}
		if adjustReason != "" {
			req.Reason = &adjustReason
		}
		if adjustUnitCost != "" {
			cost, err := decimal.NewFromString(adjustUnitCost)
			if err != nil {
				return err
			}
			req.UnitCost = &cost
		}

		a, err := openApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.svc.Adjust.AdjustStock(cmd.Context(), barn, recordID, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var listFilter dto.SupplyFilter

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the supply catalog of a barn",
	RunE: func(cmd *cobra.Command, args []string) error {
		barn, err := barnID()
		if err != nil {
			return err
		}
		a, err := openApp(false)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.svc.Supplies.List(cmd.Context(), barn, listFilter)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

func init() {
	addBarnFlag(reconcileCmd)
	reconcileCmd.Flags().StringVarP(&lineDescription, "description", "d", "", "Line item description")
	reconcileCmd.Flags().StringVarP(&lineQuantity, "quantity", "q", "1", "Quantity (number)")
	reconcileCmd.Flags().StringVarP(&linePrice, "price", "p", "", "Unit price")
	reconcileCmd.Flags().StringVarP(&lineCategory, "category", "c", "other", "Supply category")
	reconcileCmd.Flags().StringVarP(&lineUnit, "unit", "u", "", "Unit type")
	_ = reconcileCmd.MarkFlagRequired("description")

	addBarnFlag(adjustCmd)
	adjustCmd.Flags().StringVarP(&adjustRecord, "record", "r", "", "Supply record ID")
	adjustCmd.Flags().StringVarP(&adjustQuantity, "quantity", "q", "", "Quantity, signed when no direction is given")
	adjustCmd.Flags().StringVar(&adjustDirection, "direction", "", "add | remove")
	adjustCmd.Flags().StringVar(&adjustReason, "reason", "", "Audit note")
	adjustCmd.Flags().StringVar(&adjustUnitCost, "unit-cost", "", "Unit cost (add only)")
	_ = adjustCmd.MarkFlagRequired("record")
	_ = adjustCmd.MarkFlagRequired("quantity")

	addBarnFlag(listCmd)
	listCmd.Flags().StringVar(&listFilter.Category, "category", "", "Filter by category")
	listCmd.Flags().StringVar(&listFilter.Name, "name", "", "Filter by name substring")
	listCmd.Flags().StringVar(&listFilter.Status, "status", "", "in_stock | low_stock | out_of_stock")

	rootCmd.AddCommand(reconcileCmd, adjustCmd, listCmd)
}
