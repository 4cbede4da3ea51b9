package application

// LogoPresetPrompt は、「ロゴのプリセット」で読み込まれるプロンプトです
const LogoPresetPrompt = "Minimalist vector logo for 'ForgeStudios', letter F formed by three connected network nodes with geometric lines, digital spark element at top right, deep charcoal and electric blue color scheme, solid white background, flat design, clean tech aesthetic, no shading --no realistic texture detail"
