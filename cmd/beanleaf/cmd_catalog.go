package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shashiranjanraj/beanleaf/app/bot"
	"github.com/shashiranjanraj/beanleaf/app/models"
	"github.com/shashiranjanraj/beanleaf/app/services"
	"github.com/shashiranjanraj/beanleaf/internal/kernel"
)

var availableOnlyFlag bool

// beanleaf products:list
var productsListCmd = &cobra.Command{
	Use:   "products:list",
	Short: "List the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withKernel(cmd, func(ctx context.Context, k *kernel.Kernel) error {
			products, err := k.Catalog.List(ctx, availableOnlyFlag)
			if err != nil {
				return err
			}
			printProducts(products)
			return nil
		})
	},
}

var (
	productName  string
	productPrice string
	productStock string
	productDesc  string
)

// beanleaf products:add --name Latte --price 3.50 --stock 20
var productsAddCmd = &cobra.Command{
	Use:   "products:add",
	Short: "Add a product to the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := services.ValidatePrice(productPrice)
		if err != nil {
			return err
		}
		stock, err := services.ValidateStock(productStock)
		if err != nil {
			return err
		}
		return withKernel(cmd, func(ctx context.Context, k *kernel.Kernel) error {
			p, err := k.Catalog.Add(ctx, services.CreateProductRequest{
				Name:        productName,
				Description: productDesc,
				Price:       price,
				Stock:       stock,
			})
			if err != nil {
				return err
			}
			fmt.Printf("✅ Added #%d %s at %s (stock %d)\n", p.ID, p.Name, bot.FormatCurrency(p.Price), p.Stock)
			return nil
		})
	},
}

func printProducts(products []models.Product) {
	if len(products) == 0 {
		fmt.Println("No products.")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tAVAILABLE")
	fmt.Fprintln(w, "--\t----\t-----\t-----\t---------")
	for _, p := range products {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", p.ID, p.Name, bot.FormatCurrency(p.Price), p.Stock, strconv.FormatBool(p.IsAvailable))
	}
	w.Flush() //nolint:errcheck
}

func init() {
	productsListCmd.Flags().BoolVar(&availableOnlyFlag, "available", false, "Only products on sale")

	productsAddCmd.Flags().StringVar(&productName, "name", "", "Product name")
	productsAddCmd.Flags().StringVar(&productPrice, "price", "", "Unit price, e.g. 3.50")
	productsAddCmd.Flags().StringVar(&productStock, "stock", "0", "Units in stock")
	productsAddCmd.Flags().StringVar(&productDesc, "desc", "", "Description")
	productsAddCmd.MarkFlagRequired("name")  //nolint:errcheck
	productsAddCmd.MarkFlagRequired("price") //nolint:errcheck
}
