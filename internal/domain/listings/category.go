package listings

import "strings"

type Category string

const (
	CategoryTrending     Category = "Trending"
	CategoryRooms        Category = "Rooms"
	CategoryIconicCities Category = "Iconic Cities"
	CategoryMountains    Category = "Mountains"
	CategoryCastles      Category = "Castles"
	CategoryAmazingPools Category = "Amazing Pools"
	CategoryCamping      Category = "Camping"
	CategoryFarms        Category = "Farms"
	CategoryArctic       Category = "Arctic"
	CategoryDomes        Category = "Domes"
	CategoryBoats        Category = "Boats"
)

var categories = []Category{
	CategoryTrending,
	CategoryRooms,
	CategoryIconicCities,
	CategoryMountains,
	CategoryCastles,
	CategoryAmazingPools,
	CategoryCamping,
	CategoryFarms,
	CategoryArctic,
	CategoryDomes,
	CategoryBoats,
}

// Categories lists every category in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory matches case-insensitively. An empty value maps to Trending.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryTrending, nil
	}
	for _, c := range categories {
		if strings.EqualFold(string(c), raw) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

type Amenity string

const (
	AmenityWiFi             Amenity = "WiFi"
	AmenityAC               Amenity = "AC"
	AmenityTV               Amenity = "TV"
	AmenityKitchen          Amenity = "Kitchen"
	AmenityWasher           Amenity = "Washer"
	AmenityParking          Amenity = "Parking"
	AmenityPool             Amenity = "Pool"
	AmenityHotTub           Amenity = "Hot Tub"
	AmenityGym              Amenity = "Gym"
	AmenityBBQ              Amenity = "BBQ"
	AmenityFireplace        Amenity = "Fireplace"
	AmenityBalcony          Amenity = "Balcony"
	AmenityGarden           Amenity = "Garden"
	AmenityBeachAccess      Amenity = "Beach Access"
	AmenitySkiAccess        Amenity = "Ski Access"
	AmenityPetFriendly      Amenity = "Pet Friendly"
	AmenitySmokingAllowed   Amenity = "Smoking Allowed"
	AmenityWorkspace        Amenity = "Workspace"
	AmenityFirstAidKit      Amenity = "First Aid Kit"
	AmenityFireExtinguisher Amenity = "Fire Extinguisher"
)

var amenities = []Amenity{
	AmenityWiFi, AmenityAC, AmenityTV, AmenityKitchen, AmenityWasher,
	AmenityParking, AmenityPool, AmenityHotTub, AmenityGym, AmenityBBQ,
	AmenityFireplace, AmenityBalcony, AmenityGarden, AmenityBeachAccess, AmenitySkiAccess,
	AmenityPetFriendly, AmenitySmokingAllowed, AmenityWorkspace, AmenityFirstAidKit, AmenityFireExtinguisher,
}

// ParseAmenities validates and de-duplicates values, keeping first-seen order.
func ParseAmenities(raw []string) ([]Amenity, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	seen := make(map[Amenity]struct{}, len(raw))
	out := make([]Amenity, 0, len(raw))
	for _, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		matched := Amenity("")
		for _, a := range amenities {
			if strings.EqualFold(string(a), value) {
				matched = a
				break
			}
		}
		if matched == "" {
			return nil, ErrInvalidAmenity
		}
		if _, ok := seen[matched]; ok {
			continue
		}
		seen[matched] = struct{}{}
		out = append(out, matched)
	}
	return out, nil
}
