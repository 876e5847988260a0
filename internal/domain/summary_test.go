package domain

import (
	"reflect"
	"testing"
)

func TestBuildInventory(t *testing.T) {
	purchases := []*Purchase{
		{Item: "cup", Price: 20},
		{Item: "pen", Price: 10},
		{Item: "cup", Price: 20},
		{Item: "cup", Price: 25},
	}

	got := BuildInventory(purchases)
	want := []InventoryItem{
		{Item: "cup", Quantity: 3},
		{Item: "pen", Quantity: 1},
	}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected inventory: got %+v want %+v", got, want)
	}
}

func TestBuildInventoryEmpty(t *testing.T) {
	got := BuildInventory(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil inventory, got %#v", got)
	}
}
